package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/lampwick/pkg/classify"
	"github.com/go-go-golems/lampwick/pkg/gemini/api"
)

// newClassifyCommand reads a provider error payload (JSON on stdin or as an
// argument) and prints how the failure taxonomy sees it. Handy when
// debugging quota behavior against captured error responses.
func newClassifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "classify [error-json]",
		Short: "Classify a provider error payload",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw []byte
			if len(args) == 1 {
				raw = []byte(args[0])
			} else {
				var err error
				raw, err = io.ReadAll(os.Stdin)
				if err != nil {
					return errors.Wrap(err, "failed to read error payload")
				}
			}

			classified := classify.Classify(errors.New(string(raw)))

			out := map[string]interface{}{
				"kind":    fmt.Sprintf("%T", classified),
				"message": classified.Error(),
			}
			if status := api.StatusCode(classified); status != 0 {
				out["status"] = status
			}
			switch e := classified.(type) {
			case *classify.RetryableQuotaError:
				if e.RetryDelay != nil {
					out["retry_delay_ms"] = e.RetryDelay.Milliseconds()
				}
			case *classify.TerminalQuotaError:
				out["terminal"] = true
			case *classify.ValidationRequiredError:
				out["validation_link"] = e.ValidationLink
				out["learn_more_url"] = e.LearnMoreURL
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}
