package cmd

import (
	"fmt"
	"io"
	"strings"

	accountadapter "github.com/bnema/smartwallet-cli/internal/adapters/account"
	"github.com/bnema/smartwallet-cli/internal/domain"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "decode <calldata>",
		Short:       "Decode smart account call data into its calls",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{annotationOffline: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := strings.TrimSpace(args[0])
			if !strings.HasPrefix(raw, "0x") && !strings.HasPrefix(raw, "0X") {
				raw = "0x" + raw
			}

			data, err := hexutil.Decode(raw)
			if err != nil {
				return fmt.Errorf("decode calldata: %w", err)
			}

			return writeCalls(cmd.OutOrStdout(), accountadapter.DecodeCalls(data))
		},
	}
}

func writeCalls(out io.Writer, calls []domain.Call) error {
	if _, err := fmt.Fprintf(out, "calls: %d\n", len(calls)); err != nil {
		return err
	}

	for i, call := range calls {
		data := "0x"
		if len(call.Data) > 0 {
			data = hexutil.Encode(call.Data)
		}
		if _, err := fmt.Fprintf(out, "%d. to=%s value=%s data=%s\n", i+1, call.To.Hex(), call.ValueOrZero().String(), data); err != nil {
			return err
		}
	}

	return nil
}
