// Command loadgen creates items concurrently against a running server and
// checks that every write survived and every id is unique.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		baseURL  string
		requests int
		cleanup  bool
	)

	cmd := &cobra.Command{
		Use:          "loadgen",
		Short:        "Fire concurrent item creations at a medstock server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(strings.TrimRight(baseURL, "/"), requests, cleanup)
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:5000", "Server base URL")
	cmd.Flags().IntVarP(&requests, "requests", "n", 50, "Number of concurrent creates")
	cmd.Flags().BoolVar(&cleanup, "cleanup", true, "Delete the created items afterwards")

	return cmd
}

func run(baseURL string, requests int, cleanup bool) error {
	client := &http.Client{Timeout: 10 * time.Second}
	marker := fmt.Sprintf("loadgen-%d", time.Now().UnixNano())

	before, err := listItems(client, baseURL)
	if err != nil {
		return err
	}

	var successCount atomic.Int32
	var failCount atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			body, err := itemBody(marker, n)
			if err != nil {
				failCount.Add(1)
				return
			}
			resp, err := client.Post(baseURL+"/api/inventory", "application/json", bytes.NewReader(body))
			if err != nil {
				failCount.Add(1)
				return
			}
			resp.Body.Close()
			if resp.StatusCode == http.StatusCreated {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	after, err := listItems(client, baseURL)
	if err != nil {
		return err
	}

	var ours []map[string]any
	ids := make(map[string]int)
	for _, item := range after {
		if item["batch"] == marker {
			ours = append(ours, item)
			ids[fmt.Sprint(item["id"])]++
		}
	}
	duplicates := 0
	for _, n := range ids {
		if n > 1 {
			duplicates += n - 1
		}
	}

	fmt.Println("========== LOAD TEST RESULTS ==========")
	fmt.Printf("Items before:     %d\n", len(before))
	fmt.Printf("Total Requests:   %d\n", requests)
	fmt.Printf("Successful:       %d\n", successCount.Load())
	fmt.Printf("Failed:           %d\n", failCount.Load())
	fmt.Printf("Persisted:        %d\n", len(ours))
	fmt.Printf("Duplicate ids:    %d\n", duplicates)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("=======================================")

	if int(successCount.Load()) == len(ours) {
		fmt.Println("PASS: every acknowledged create was persisted")
	} else {
		fmt.Printf("FAIL: %d acknowledged creates were lost\n", int(successCount.Load())-len(ours))
	}
	if duplicates == 0 {
		fmt.Println("PASS: all ids unique")
	} else {
		fmt.Printf("FAIL: %d duplicate ids\n", duplicates)
	}

	if cleanup {
		for id := range ids {
			if err := deleteItem(client, baseURL, id); err != nil {
				return err
			}
		}
	}
	return nil
}

func itemBody(marker string, n int) ([]byte, error) {
	body, err := json.Marshal(map[string]any{"name": fmt.Sprintf("%s-%d", marker, n), "qty": n, "batch": marker})
	if err != nil {
		return nil, fmt.Errorf("encode item %d: %w", n, err)
	}
	return body, nil
}

func deleteItem(client *http.Client, baseURL, id string) error {
	req, err := http.NewRequest(http.MethodDelete, baseURL+"/api/inventory/"+url.PathEscape(id), nil)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("delete %s: unexpected status %d", id, resp.StatusCode)
	}
	return nil
}

func listItems(client *http.Client, baseURL string) ([]map[string]any, error) {
	resp, err := client.Get(baseURL + "/api/inventory")
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	defer resp.Body.Close()

	var items []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode inventory: %w", err)
	}
	return items, nil
}
