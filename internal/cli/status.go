package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/feastline/concierge/internal/store"
)

func newStatusCmd() *cobra.Command {
	var page string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show identity, storage, and backend configuration",
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

			contact := st.Contact()
			transcript := st.LoadTranscript(page)

			fmt.Printf("backend:   %s\n", cfg.Backend.StreamURL)
			fmt.Printf("fallback:  %s\n", cfg.Backend.FallbackURL)
			fmt.Printf("storage:   %s (%s)\n", cfg.Storage.Path, cfg.Storage.Driver)
			fmt.Printf("user id:   %s\n", st.GetOrCreateUserID())
			fmt.Printf("thread id: %s (context %q)\n", st.GetOrCreateThreadID(page), page)
			fmt.Printf("messages:  %d\n", len(transcript))
			fmt.Printf("unread:    %d\n", st.Unread(page))
			if contact.Complete() {
				fmt.Printf("contact:   %s / %s\n", contact.Name, contact.Phone)
			} else {
				fmt.Println("contact:   not captured (gate will prompt before the first message)")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&page, "page", "", "conversation context (page/topic)")
	return cmd
}
