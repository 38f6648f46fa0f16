// scripts/hosts_integration_check.go
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/capeval/capeval/internal/appconfig"
)

// Probes every host in the config so a broken server is found before a long
// evaluation run: ollama-style caption/LM hosts get a /api/tags listing and a
// minimal /api/generate round trip, plugin and scorer hosts get a health check.
func main() {
	configPath := flag.String("config", appconfig.DefaultConfigPath, "Path to config JSON")
	hostName := flag.String("host", "", "Only check the host with this name")
	timeout := flag.Duration("timeout", 30*time.Second, "HTTP timeout")
	flag.Parse()

	cfg, err := appconfig.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	client := &http.Client{Timeout: *timeout}

	failures := 0
	for _, host := range cfg.Hosts {
		if *hostName != "" && host.Name != *hostName {
			continue
		}
		fmt.Printf("== %s (%s, %s) ==\n", host.Name, host.Type, host.URL)
		if err := checkHost(client, host); err != nil {
			fmt.Fprintf(os.Stderr, "check failed: %v\n\n", err)
			failures++
			continue
		}
		fmt.Println("ok")
		fmt.Println()
	}

	if failures > 0 {
		fmt.Fprintf(os.Stderr, "%d host(s) failed\n", failures)
		os.Exit(1)
	}
}

func checkHost(client *http.Client, host appconfig.Host) error {
	switch host.Type {
	case appconfig.HostTypeCaption, appconfig.HostTypeLM:
		if err := listModels(client, host.URL); err != nil {
			return err
		}
		return probeGenerate(client, host.URL, host.Model)
	case appconfig.HostTypePlugin, appconfig.HostTypeScorer:
		return checkHealth(client, host.URL)
	default:
		return fmt.Errorf("unknown host type %q", host.Type)
	}
}

func listModels(client *http.Client, baseURL string) error {
	fmt.Println("-- /api/tags --")
	req, err := http.NewRequest(http.MethodGet, strings.TrimRight(baseURL, "/")+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	fmt.Printf("Status: %s\n", resp.Status)

	var parsed struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		fmt.Printf("Parse: %v\n", err)
		return nil
	}
	fmt.Printf("Models: %d\n", len(parsed.Models))
	for _, m := range parsed.Models {
		fmt.Printf("  - %s\n", m.Name)
	}
	return nil
}

func probeGenerate(client *http.Client, baseURL, model string) error {
	fmt.Println("-- /api/generate probe --")
	if model == "" {
		model = "model"
	}
	payload := map[string]any{
		"model":  model,
		"prompt": "ping",
		"stream": false,
	}
	status, body, err := postJSON(client, strings.TrimRight(baseURL, "/")+"/api/generate", payload)
	if err != nil {
		return err
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	fmt.Printf("status=%d body=%s\n", status, msg)
	if status >= 400 {
		return fmt.Errorf("generate probe returned status %d", status)
	}
	return nil
}

func checkHealth(client *http.Client, baseURL string) error {
	fmt.Println("-- /healthz --")
	req, err := http.NewRequest(http.MethodGet, strings.TrimRight(baseURL, "/")+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	fmt.Printf("Status: %s\n", resp.Status)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

func postJSON(client *http.Client, url string, payload map[string]any) (int, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), client.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}
