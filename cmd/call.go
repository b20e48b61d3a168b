package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iDang3r/tarantool/modules"
)

func getCallCmd(gs *globalState) *cobra.Command {
	return &cobra.Command{
		Use:   "call <package.function> [json-args]",
		Short: "Call a native function with JSON-encoded arguments",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			var vals []interface{}
			if len(args) == 2 {
				if err := json.Unmarshal([]byte(args[1]), &vals); err != nil {
					return fmt.Errorf("arguments must be a JSON array: %w", err)
				}
			}
			packed, err := modules.EncodeArgs(vals...)
			if err != nil {
				return err
			}

			registry, err := gs.newRegistry()
			if err != nil {
				return err
			}
			defer func() {
				if cerr := registry.Close(); cerr != nil {
					gs.logger.WithError(cerr).Warn("registry teardown")
				}
			}()

			binding := registry.NewBinding(args[0])
			res, err := binding.Call(packed)
			binding.Unbind()
			if err != nil {
				return err
			}

			decoded, err := modules.DecodeResult(res)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(gs.stdOut)
			return enc.Encode(decoded)
		},
	}
}
