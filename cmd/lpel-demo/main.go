// Command lpel-demo drives the runtime's textbook scenarios end to end,
// outside the test binary: a pipeline of relay tasks, a fan-out
// termination barrier across a hundred tasks, and a priority-scheduled
// fan-in under the HRC master.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"code.hybscloud.com/lpel"
	_ "code.hybscloud.com/lpel/decen"
	"code.hybscloud.com/lpel/hrc"
	"code.hybscloud.com/lpel/lpelcfg"
)

var log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "lpel-demo",
	Short: "Run LPEL cooperative-scheduling demo scenarios",
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "debug, info, warn, or error")
	lpelcfg.RegisterFlags(rootCmd.PersistentFlags())
	fanInCmd.Flags().Float64("neg-demand-limit", 64, "output backlog beyond which a source task is parked (< 0 disables)")
	rootCmd.AddCommand(pipelineCmd, barrierCmd, fanInCmd)
}

func setLevel(cmd *cobra.Command) {
	lvl, _ := cmd.Flags().GetString("log-level")
	parsed, err := zerolog.ParseLevel(lvl)
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	log = log.Level(parsed)
}

func startRuntime(cmd *cobra.Command, numWorkers int) error {
	v := viper.New()
	cfg, err := lpelcfg.Load(v, cmd.Flags())
	if err != nil {
		return err
	}
	if numWorkers > 0 {
		cfg.NumWorkers = numWorkers
	}
	if err := lpel.Init(cfg); err != nil {
		return err
	}
	return lpel.Start()
}

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "40-relay pipeline on 2 DECEN workers (scenario 1)",
	RunE: func(cmd *cobra.Command, args []string) error {
		setLevel(cmd)
		if err := startRuntime(cmd, 2); err != nil {
			return err
		}
		defer lpel.Cleanup()

		const relays = 40
		streams := make([]*lpel.Stream, relays+1)
		for i := range streams {
			streams[i] = lpel.NewStream(1)
		}

		done := make(chan struct{})

		source, err := lpel.TaskCreate(lpel.MapOthers, func(any) any {
			out := lpel.StreamOpen(lpel.TaskSelf(), streams[0], lpel.ModeWrite)
			for _, msg := range []string{"1\n", "2\n", "T\n"} {
				lpel.Write(out, msg)
			}
			lpel.StreamClose(out, false)
			return nil
		}, nil, 0, lpel.FlagNone)
		if err != nil {
			return err
		}

		for i := 0; i < relays; i++ {
			i := i
			in, out := streams[i], streams[i+1]
			relay, err := lpel.TaskCreate(lpel.MapOthers, func(any) any {
				self := lpel.TaskSelf()
				rd := lpel.StreamOpen(self, in, lpel.ModeRead)
				wr := lpel.StreamOpen(self, out, lpel.ModeWrite)
				for {
					msg := lpel.Read(rd).(string)
					lpel.Write(wr, msg)
					if msg == "T\n" {
						break
					}
				}
				lpel.StreamClose(rd, false)
				lpel.StreamClose(wr, false)
				return nil
			}, nil, 0, lpel.FlagNone)
			if err != nil {
				return err
			}
			lpel.TaskStart(relay)
		}

		sink, err := lpel.TaskCreate(lpel.MapOthers, func(any) any {
			in := lpel.StreamOpen(lpel.TaskSelf(), streams[relays], lpel.ModeRead)
			for {
				msg := lpel.Read(in).(string)
				log.Info().Str("msg", msg[:len(msg)-1]).Msg("sink received")
				if msg == "T\n" {
					break
				}
			}
			lpel.StreamClose(in, false)
			close(done)
			return nil
		}, nil, 0, lpel.FlagNone)
		if err != nil {
			return err
		}

		lpel.TaskStart(sink)
		lpel.TaskStart(source)

		<-done
		log.Info().Msg("pipeline complete, stopping runtime")
		return lpel.Stop()
	},
}

var barrierCmd = &cobra.Command{
	Use:   "barrier",
	Short: "100 tasks racing a shared termination barrier (scenario 6)",
	RunE: func(cmd *cobra.Command, args []string) error {
		setLevel(cmd)
		if err := startRuntime(cmd, 4); err != nil {
			return err
		}
		defer lpel.Cleanup()

		const n = 100
		remaining := make(chan struct{}, n)

		for i := 0; i < n; i++ {
			i := i
			t, err := lpel.TaskCreate(lpel.MapOthers, func(any) any {
				lpel.TaskYield()
				remaining <- struct{}{}
				log.Debug().Int("task", i).Msg("reached terminator")
				return nil
			}, nil, 0, lpel.FlagNone)
			if err != nil {
				return err
			}
			lpel.TaskStart(t)
		}

		for i := 0; i < n; i++ {
			<-remaining
		}
		log.Info().Int("tasks", n).Msg("all tasks reached the barrier, stopping runtime")
		return lpel.Stop()
	},
}

var fanInCmd = &cobra.Command{
	Use:   "fanin",
	Short: "5 eager sources feeding one slow sink under the HRC master (scenario 3)",
	RunE: func(cmd *cobra.Command, args []string) error {
		setLevel(cmd)
		limit, _ := cmd.Flags().GetFloat64("neg-demand-limit")
		hrc.Configure(14, nil, limit)

		v := viper.New()
		cfg, err := lpelcfg.Load(v, cmd.Flags())
		if err != nil {
			return err
		}
		cfg.Backend = "hrc"
		cfg.NumWorkers = 3
		if err := lpel.Init(cfg); err != nil {
			return err
		}
		if err := lpel.Start(); err != nil {
			return err
		}
		defer lpel.Cleanup()

		const (
			sources = 5
			perSrc  = 200
		)
		streams := make([]*lpel.Stream, sources)
		for i := range streams {
			streams[i] = lpel.NewUnboundedStream()
		}

		done := make(chan struct{})

		sink, err := lpel.TaskCreate(lpel.MapOthers, func(any) any {
			self := lpel.TaskSelf()
			sds := make([]*lpel.StreamDescriptor, sources)
			for i, s := range streams {
				sds[i] = lpel.StreamOpen(self, s, lpel.ModeRead)
			}
			total := 0
			for _, sd := range sds {
				for j := 0; j < perSrc; j++ {
					lpel.Read(sd)
					total++
				}
			}
			for _, sd := range sds {
				lpel.StreamClose(sd, false)
			}
			log.Info().Int("items", total).Msg("sink drained all sources")
			close(done)
			return nil
		}, nil, 0, lpel.FlagNone)
		if err != nil {
			return err
		}
		lpel.TaskSetRecLimit(sink, 10)
		lpel.TaskStart(sink)

		for i := 0; i < sources; i++ {
			i := i
			s := streams[i]
			src, err := lpel.TaskCreate(lpel.MapOthers, func(any) any {
				wr := lpel.StreamOpen(lpel.TaskSelf(), s, lpel.ModeWrite)
				for j := 0; j < perSrc; j++ {
					lpel.Write(wr, j)
				}
				lpel.StreamClose(wr, false)
				log.Debug().Int("source", i).Msg("source finished")
				return nil
			}, nil, 0, lpel.FlagNone)
			if err != nil {
				return err
			}
			lpel.TaskStart(src)
		}

		<-done
		log.Info().Msg("fan-in complete, stopping runtime")
		return lpel.Stop()
	},
}
