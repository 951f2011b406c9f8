// Seed a demo session against a running minder server. It drives the
// /chat endpoint the way a user would: a backlog of tasks (one already
// done), an overdue and a future reminder, and a fresh check-in, then
// prints the nudge the evaluator produces for that state.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
)

func main() {
	base := os.Getenv("MINDER_BASE_URL")
	if base == "" {
		base = "http://127.0.0.1:8080"
	}

	fmt.Println("Posting initial hello to /chat to create a session...")
	res, err := postChat(base, "hello", "")
	if err != nil {
		log.Fatalf("Is the server running at %s? %v", base, err)
	}
	sessionID, _ := res["session_id"].(string)
	fmt.Println("session_id:", sessionID)

	for _, msg := range []string{
		"add task Buy groceries",
		"add task Walk the dog",
		"add task Finish report",
	} {
		if _, err := postChat(base, msg, sessionID); err != nil {
			log.Fatalf("Failed to add task: %v", err)
		}
	}

	// Complete the first task so the backlog has a done item.
	var listing struct {
		Tasks []struct {
			ID string `json:"id"`
		} `json:"tasks"`
	}
	if err := getJSON(base+"/sessions/"+sessionID+"/tasks", &listing); err != nil {
		log.Fatalf("Failed to list tasks: %v", err)
	}
	if len(listing.Tasks) > 0 {
		if _, err := postChat(base, "complete "+listing.Tasks[0].ID, sessionID); err != nil {
			log.Fatalf("Failed to complete task: %v", err)
		}
	}

	// One overdue reminder (negative minutes) and one future one.
	for _, msg := range []string{
		"remind me in -1440 minutes to Provider appointment",
		"remind me in 2880 minutes to Call back client",
	} {
		if _, err := postChat(base, msg, sessionID); err != nil {
			log.Fatalf("Failed to add reminder: %v", err)
		}
	}

	if _, err := postChat(base, "check in: mood=content energy=7 focus=6 note=Had-a-productive-morning", sessionID); err != nil {
		log.Fatalf("Failed to check in: %v", err)
	}

	nudge, err := postJSON(base+"/sessions/"+sessionID+"/nudge", nil)
	if err != nil {
		log.Fatalf("Failed to evaluate nudge: %v", err)
	}
	fmt.Println("Nudge response:", nudge)

	fmt.Println("\nSeeding complete. session_id:", sessionID)
}

func postChat(base, message, sessionID string) (map[string]any, error) {
	payload := map[string]any{"message": message}
	if sessionID != "" {
		payload["session_id"] = sessionID
	}
	return postJSON(base+"/chat", payload)
}

func postJSON(url string, payload map[string]any) (map[string]any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func getJSON(url string, out any) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
