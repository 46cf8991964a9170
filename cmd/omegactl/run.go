package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"omega/pkg/client"
)

// request calls the daemon once and prints the JSON reply. The daemon does
// its own retrying, so the CLI never does.
func request(ctx context.Context, w io.Writer, method, path string, body any) error {
	c := client.New(serverURL, client.WithName("omegactl"), client.WithDefaultTimeout(timeout))
	res := c.FetchWithStatus(ctx, path, client.Options{Method: method, Body: body, NoRetry: true})
	if res.OK {
		return printJSON(w, res.Data)
	}

	var se *client.StatusError
	if errors.As(res.Err, &se) && len(se.Body) > 0 {
		if err := printJSON(w, se.Body); err != nil {
			return err
		}
	}
	return fmt.Errorf("%s %s: %w", method, path, res.Err)
}

func printJSON(w io.Writer, data json.RawMessage) error {
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		_, err = w.Write(data)
		return err
	}
	out.WriteByte('\n')
	_, err := out.WriteTo(w)
	return err
}

func runGet(path string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		return request(cmd.Context(), cmd.OutOrStdout(), http.MethodGet, path, nil)
	}
}

func runPost(path string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		return request(cmd.Context(), cmd.OutOrStdout(), http.MethodPost, path, nil)
	}
}

func runNodeAction(action string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		path := "/dash/ally/nodes/" + url.PathEscape(args[0]) + "/" + action
		return request(cmd.Context(), cmd.OutOrStdout(), http.MethodPost, path, nil)
	}
}

func runDiscard(cmd *cobra.Command, args []string) error {
	return request(cmd.Context(), cmd.OutOrStdout(), http.MethodDelete, "/dash/queue/"+url.PathEscape(args[0]), nil)
}

func runSnapshot(cmd *cobra.Command, _ []string) error {
	if refresh {
		return request(cmd.Context(), cmd.OutOrStdout(), http.MethodPost, "/dash/snapshot/refresh", nil)
	}
	return request(cmd.Context(), cmd.OutOrStdout(), http.MethodGet, "/dash/snapshot", nil)
}

func chatPath() string {
	if dmTarget != "" {
		return "/dash/ally/chat/dm/" + url.PathEscape(dmTarget)
	}
	return "/dash/ally/chat/global"
}

func runChat(cmd *cobra.Command, _ []string) error {
	return request(cmd.Context(), cmd.OutOrStdout(), http.MethodGet, chatPath(), nil)
}

func runSend(cmd *cobra.Command, args []string) error {
	body := map[string]any{"text": strings.Join(args, " ")}
	if dmTarget != "" {
		body["urgent"] = urgent
	} else if priority != "" {
		body["priority"] = priority
	}
	return request(cmd.Context(), cmd.OutOrStdout(), http.MethodPost, chatPath(), body)
}

func runBroadcast(cmd *cobra.Command, args []string) error {
	body := map[string]string{"title": args[0], "message": args[1], "severity": severity}
	return request(cmd.Context(), cmd.OutOrStdout(), http.MethodPost, "/dash/ally/broadcast", body)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return request(cmd.Context(), cmd.OutOrStdout(), http.MethodGet, "/dash/ally/status/me", nil)
	}
	body := map[string]string{"status": args[0], "note": note}
	return request(cmd.Context(), cmd.OutOrStdout(), http.MethodPut, "/dash/ally/status/me", body)
}

func runUnlock(cmd *cobra.Command, args []string) error {
	return request(cmd.Context(), cmd.OutOrStdout(), http.MethodPost, "/dash/admin/verify", map[string]string{"pin": args[0]})
}

func runSelfTest(cmd *cobra.Command, _ []string) error {
	if runTest {
		return request(cmd.Context(), cmd.OutOrStdout(), http.MethodPost, "/dash/selftest", nil)
	}
	return request(cmd.Context(), cmd.OutOrStdout(), http.MethodGet, "/dash/selftest", nil)
}
