package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	baseURL        string
	timeout        time.Duration
	token          string
	idempotencyKey string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gramdhan-cli",
		Short: "GramDhan ledger CLI tool",
		Long:  `A command line interface for interacting with the GramDhan ledger API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the ledger API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("GRAMDHAN_TOKEN"), "Bearer token (defaults to GRAMDHAN_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&idempotencyKey, "idempotency-key", "", "Idempotency key for mutating requests")

	// Ledger commands
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	depositCmd := &cobra.Command{
		Use:   "deposit [amount-paise] [method]",
		Short: "Deposit into the caller's account",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			post("/api/v1/ledger/deposits", map[string]any{
				"amount": mustParseAmount(args[0]),
				"method": args[1],
			})
		},
	}

	transferCmd := &cobra.Command{
		Use:   "transfer [recipient-wallet] [recipient-name] [amount-paise]",
		Short: "Transfer to another wallet",
		Args:  cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			post("/api/v1/ledger/transfers", map[string]any{
				"recipientWallet": args[0],
				"recipientName":   args[1],
				"amount":          mustParseAmount(args[2]),
			})
		},
	}

	consistencyCmd := &cobra.Command{
		Use:   "consistency",
		Short: "Check ledger consistency",
		Run: func(cmd *cobra.Command, args []string) {
			checkConsistency()
		},
	}

	ledgerCmd.AddCommand(depositCmd, transferCmd, consistencyCmd)
	rootCmd.AddCommand(ledgerCmd)

	balanceCmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the caller's balance",
		Run: func(cmd *cobra.Command, args []string) {
			get("/api/v1/balance")
		},
	}
	rootCmd.AddCommand(balanceCmd)

	activityCmd := &cobra.Command{
		Use:   "activity",
		Short: "Show the caller's recent transactions",
		Run: func(cmd *cobra.Command, args []string) {
			get("/api/v1/activity")
		},
	}
	rootCmd.AddCommand(activityCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func mustParseAmount(s string) int64 {
	var amount int64
	if _, err := fmt.Sscanf(s, "%d", &amount); err != nil || amount <= 0 {
		fmt.Printf("Invalid amount %q: expected positive paise\n", s)
		os.Exit(1)
	}
	return amount
}

func get(path string) {
	req, err := http.NewRequest(http.MethodGet, baseURL+path, nil)
	if err != nil {
		fmt.Printf("Error building request: %v\n", err)
		os.Exit(1)
	}
	doRequest(req)
}

func post(path string, body map[string]any) {
	payload, err := json.Marshal(body)
	if err != nil {
		fmt.Printf("Error encoding request: %v\n", err)
		os.Exit(1)
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+path, bytes.NewReader(payload))
	if err != nil {
		fmt.Printf("Error building request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	doRequest(req)
}

func doRequest(req *http.Request) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		pretty.Write(body)
	}

	if resp.StatusCode >= 400 {
		fmt.Printf("Request failed (Status: %d)\n%s\n", resp.StatusCode, pretty.String())
		os.Exit(1)
	}

	fmt.Println(pretty.String())
}

func checkConsistency() {
	req, err := http.NewRequest(http.MethodGet, baseURL+"/api/v1/ledger/consistency", nil)
	if err != nil {
		fmt.Printf("Error building request: %v\n", err)
		os.Exit(1)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Consistency check FAILED (Status: %d)\nResponse: %s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		fmt.Printf("Failed to parse response: %v\n", err)
		os.Exit(1)
	}

	if consistent, ok := result["consistent"].(bool); ok && consistent {
		fmt.Println("Consistency check PASSED")
	} else {
		fmt.Println("Consistency check FAILED")
	}
	fmt.Printf("Groups checked: %v\n", result["groups_checked"])
}
