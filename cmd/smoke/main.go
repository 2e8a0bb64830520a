package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Smoke test against a running instance. Assumes Order 1 exists with
// Product 1 (stock >= 3) and Product 2 (stock >= 1); nothing is seeded here.

type testCase struct {
	orderID    int
	productID  int
	quantity   int
	wantStatus int
	note       string
}

var cases = []testCase{
	{1, 1, 2, http.StatusOK, "add 2 of product 1"},
	{1, 2, 1, http.StatusOK, "add another product"},
	{1, 1, 1, http.StatusOK, "merge into existing line item"},
	{1, 1, 100, http.StatusBadRequest, "insufficient stock"},
	{1, 999, 1, http.StatusNotFound, "unknown product"},
	{999, 1, 1, http.StatusNotFound, "unknown order"},
}

func main() {
	base := os.Getenv("API_URL")
	if base == "" {
		base = "http://localhost:8081"
	}
	client := &http.Client{Timeout: 10 * time.Second}

	failed := 0
	for i, tc := range cases {
		body, _ := json.Marshal(map[string]int{
			"product_id": tc.productID,
			"quantity":   tc.quantity,
		})
		url := fmt.Sprintf("%s/orders/%d/items", base, tc.orderID)

		resp, err := client.Post(url, "application/json", bytes.NewReader(body))
		if err != nil {
			fmt.Printf("[%d] %s: request failed: %v\n", i+1, tc.note, err)
			failed++
			continue
		}
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		mark := "PASS"
		if resp.StatusCode != tc.wantStatus {
			mark = "FAIL"
			failed++
		}
		fmt.Printf("[%d] %s: %s (want %d, got %d)\n%s\n",
			i+1, tc.note, mark, tc.wantStatus, resp.StatusCode, respBody)
	}

	fmt.Printf("==========================================\n%d/%d cases passed\n",
		len(cases)-failed, len(cases))
	if failed > 0 {
		os.Exit(1)
	}
}
