package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/traian1744/openai-nim-proxy/internal/credentials"
)

func newSetKeyCmd(root *rootCommander) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "set-key [key]",
		Short: "Store the NIM API key in the key file",
		Long: `Store the NIM API key in the key file used when NIM_API_KEY is unset.

The key is read from the argument or, when omitted, from the first line of
standard input. The file defaults to upstream.api_key_file or
$XDG_CONFIG_HOME/nim-proxy/api_key.json.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := ""
			if len(args) == 1 {
				key = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("reading key from stdin: %w", err)
				}
				key = line
			}
			key = strings.TrimSpace(key)
			if key == "" {
				return errors.New("empty key")
			}

			if path == "" && root.cfg != nil {
				path = root.cfg.Upstream.APIKeyFile
			}
			if path == "" {
				path = credentials.DefaultKeyPath()
			}
			if err := credentials.WriteKeyFile(path, key); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote API key to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "Key file to write")
	return cmd
}
