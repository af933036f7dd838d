package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

var (
	injectURL      string
	injectToken    string
	injectKind     string
	injectTarget   string
	injectSeverity int
)

var injectCmd = &cobra.Command{
	Use:   "inject",
	Short: "inject an operator event into a running simulation's admin API",
	RunE:  runInject,
}

func init() {
	injectCmd.Flags().StringVar(&injectURL, "url", "http://localhost:8080", "base URL of the running simulation's API")
	injectCmd.Flags().StringVar(&injectToken, "token", "", "admin bearer token (see MintAdminToken / the server's configured jwt_secret)")
	injectCmd.Flags().StringVar(&injectKind, "kind", "", "event kind: natural_disaster, resource_boom, plague, migration")
	injectCmd.Flags().StringVar(&injectTarget, "target", "", "target region/location name")
	injectCmd.Flags().IntVar(&injectSeverity, "severity", 0, "event severity 1-5 (0 or omitted: defaults to 2)")
	injectCmd.MarkFlagRequired("kind")
	injectCmd.MarkFlagRequired("token")
}

func runInject(cmd *cobra.Command, args []string) error {
	payload, err := json.Marshal(map[string]any{
		"kind":          injectKind,
		"target_region": injectTarget,
		"severity":      injectSeverity,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, injectURL+"/api/v1/inject", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+injectToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("inject request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("server returned %s: %s", resp.Status, string(body))
	}
	fmt.Println(string(body))
	return nil
}
