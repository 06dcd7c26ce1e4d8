package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	messagesCmd := &cobra.Command{Use: "messages", Short: "Contact message operations"}

	// list
	var tab, priority, date, search string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List messages with optional filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := map[string]string{}
			if tab != "" {
				query["tab"] = tab
			}
			if priority != "" {
				query["priority"] = priority
			}
			if date != "" {
				query["date"] = date
			}
			if search != "" {
				query["q"] = search
			}
			data, err := doGet(apiFlag, "/api/messages", query)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	listCmd.Flags().StringVarP(&tab, "tab", "t", "", "Tab filter (all|unread|read|replied|archived)")
	listCmd.Flags().StringVarP(&priority, "priority", "p", "", "Priority filter (low|normal|high|urgent)")
	listCmd.Flags().StringVarP(&date, "date", "d", "", "Date filter (today|yesterday|thisWeek|thisMonth)")
	listCmd.Flags().StringVarP(&search, "search", "s", "", "Substring search over name, email, subject and body")
	messagesCmd.AddCommand(listCmd)

	// open
	openCmd := &cobra.Command{
		Use:   "open MESSAGE_ID",
		Short: "Open a message, marking it read on first open",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doPostJSON(apiFlag, fmt.Sprintf("/api/messages/%s/open", args[0]), nil)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	messagesCmd.AddCommand(openCmd)

	// transition
	var target, reply string
	transitionCmd := &cobra.Command{
		Use:   "transition MESSAGE_ID",
		Short: "Transition a message to read, replied or archived",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if target == "" {
				return fmt.Errorf("--target required")
			}
			payload := map[string]interface{}{"target": target}
			if reply != "" {
				payload["reply"] = reply
			}
			data, err := doPostJSON(apiFlag, fmt.Sprintf("/api/messages/%s/transition", args[0]), payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	transitionCmd.Flags().StringVarP(&target, "target", "t", "", "Target status (read|replied|archived)")
	transitionCmd.Flags().StringVarP(&reply, "reply", "r", "", "Reply text recorded with a replied transition")
	_ = transitionCmd.MarkFlagRequired("target")
	messagesCmd.AddCommand(transitionCmd)

	// unread
	unreadCmd := &cobra.Command{
		Use:   "unread MESSAGE_ID",
		Short: "Mark a message unread without touching its status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doPostJSON(apiFlag, fmt.Sprintf("/api/messages/%s/unread", args[0]), nil)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	messagesCmd.AddCommand(unreadCmd)

	// priority
	var newPriority string
	priorityCmd := &cobra.Command{
		Use:   "priority MESSAGE_ID",
		Short: "Set a message priority",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if newPriority == "" {
				return fmt.Errorf("--priority required")
			}
			payload := map[string]interface{}{"priority": newPriority}
			data, err := doPatchJSON(apiFlag, fmt.Sprintf("/api/messages/%s/priority", args[0]), payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	priorityCmd.Flags().StringVarP(&newPriority, "priority", "p", "", "Priority (low|normal|high|urgent)")
	_ = priorityCmd.MarkFlagRequired("priority")
	messagesCmd.AddCommand(priorityCmd)

	// bulk
	var idsFlag, action string
	bulkCmd := &cobra.Command{
		Use:   "bulk",
		Short: "Apply an action to several messages at once",
		RunE: func(cmd *cobra.Command, args []string) error {
			if idsFlag == "" || action == "" {
				return fmt.Errorf("--ids and --action required")
			}
			ids, err := parseIDs(idsFlag)
			if err != nil {
				return err
			}
			payload := map[string]interface{}{"ids": ids, "action": action}
			data, err := doPostJSON(apiFlag, "/api/messages/bulk", payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	bulkCmd.Flags().StringVarP(&idsFlag, "ids", "i", "", "Comma-separated message ids")
	bulkCmd.Flags().StringVarP(&action, "action", "x", "", "Action (markRead|markUnread|archive|delete)")
	_ = bulkCmd.MarkFlagRequired("ids")
	_ = bulkCmd.MarkFlagRequired("action")
	messagesCmd.AddCommand(bulkCmd)

	// delete
	deleteCmd := &cobra.Command{
		Use:   "delete MESSAGE_ID",
		Short: "Delete a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doDelete(apiFlag, fmt.Sprintf("/api/messages/%s", args[0]))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	messagesCmd.AddCommand(deleteCmd)

	// submit
	var name, email, subject, body, submitPriority string
	submitCmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a contact message",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" || email == "" || subject == "" || body == "" {
				return fmt.Errorf("--name, --email, --subject and --body required")
			}
			payload := map[string]interface{}{
				"name":    name,
				"email":   email,
				"subject": subject,
				"body":    body,
			}
			if submitPriority != "" {
				payload["priority"] = submitPriority
			}
			data, err := doPostJSON(apiFlag, "/api/contact", payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	submitCmd.Flags().StringVarP(&name, "name", "n", "", "Sender name (required)")
	submitCmd.Flags().StringVarP(&email, "email", "e", "", "Sender email (required)")
	submitCmd.Flags().StringVarP(&subject, "subject", "j", "", "Subject (required)")
	submitCmd.Flags().StringVarP(&body, "body", "b", "", "Message body (required)")
	submitCmd.Flags().StringVarP(&submitPriority, "priority", "p", "", "Priority (low|normal|high|urgent)")
	messagesCmd.AddCommand(submitCmd)

	rootCmd.AddCommand(messagesCmd)
}

func parseIDs(s string) ([]int64, error) {
	parts := strings.Split(s, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", p)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no ids given")
	}
	return ids, nil
}
