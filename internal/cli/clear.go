package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/feastline/concierge/internal/store"
)

func newClearCmd() *cobra.Command {
	var (
		page     string
		identity bool
	)

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the stored conversation for a context",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if page == "" {
				page = cfg.Backend.Page
			}
			if page == "" {
				page = "terminal"
			}

			kv := store.OpenKV(cfg.Storage.Driver, cfg.Storage.Path, log)
			st := store.New(kv, log)
			defer st.Close()

			st.Clear(page)
			fmt.Printf("cleared conversation for context %q\n", page)

			if identity {
				st.ClearIdentity()
				fmt.Println("cleared user identity and contact record")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&page, "page", "", "conversation context (page/topic)")
	cmd.Flags().BoolVar(&identity, "identity", false, "also reset the user identity and contact record")
	return cmd
}
