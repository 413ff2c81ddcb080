package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/lampwick/pkg/chat"
	"github.com/go-go-golems/lampwick/pkg/chat/replay"
	"github.com/go-go-golems/lampwick/pkg/events"
	"github.com/go-go-golems/lampwick/pkg/gemini/api"
	"github.com/go-go-golems/lampwick/pkg/turns"
)

func newReplayCommand() *cobra.Command {
	var (
		model      string
		prompt     string
		promptID   string
		verbose    bool
		dumpEvents bool
	)

	cmd := &cobra.Command{
		Use:   "replay <recording.jsonl>",
		Short: "Run one turn over a recorded response stream and print its events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			session, err := replay.LoadFile(args[0])
			if err != nil {
				return err
			}

			router, err := events.NewEventRouter(events.WithVerbose(verbose))
			if err != nil {
				return errors.Wrap(err, "failed to create event router")
			}
			defer func() {
				_ = router.Close()
			}()

			sink := events.NewWatermillSink(router.Publisher, "chat")
			if dumpEvents {
				router.AddHandler("raw-events", "chat", router.DumpRawEvents)
			} else {
				router.AddHandler("printer", "chat", events.TurnPrinterFunc("", os.Stdout))
			}

			if promptID == "" {
				promptID = uuid.NewString()
			}
			turn := turns.NewTurn(session, promptID, turns.WithEventSinks(sink))

			eg, ctx := errgroup.WithContext(ctx)
			eg.Go(func() error {
				return router.Run(ctx)
			})
			eg.Go(func() error {
				defer func() {
					_ = router.Close()
				}()
				<-router.Running()

				req := chat.SendMessageRequest{
					Model:    model,
					Content:  []api.Part{{Text: prompt}},
					PromptID: promptID,
				}
				for range turn.Run(ctx, req) {
					// handlers on the router do the rendering
				}
				if err := turn.Err(); err != nil {
					return err
				}

				if reason, ok := turn.FinishReason(); ok {
					log.Info().Str("finish_reason", string(reason)).Msg("Turn finished")
				}
				if calls := turn.PendingToolCalls(); len(calls) > 0 {
					names := make([]string, 0, len(calls))
					for _, c := range calls {
						names = append(names, c.Name)
					}
					fmt.Printf("\npending tool calls: %s\n", strings.Join(names, ", "))
				}
				return nil
			})

			return eg.Wait()
		},
	}

	cmd.Flags().StringVar(&model, "model", "gemini-2.5-pro", "Model id to record on events")
	cmd.Flags().StringVar(&prompt, "prompt", "", "Prompt text to send with the replayed turn")
	cmd.Flags().StringVar(&promptID, "prompt-id", "", "Prompt id (random when empty)")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Verbose event router logging")
	cmd.Flags().BoolVar(&dumpEvents, "dump-raw-events", false, "Dump raw event JSON instead of rendering")

	return cmd
}
