package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/unibot-io/unibot/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	switch os.Args[1] {
	case "health":
		cmdHealth()
	case "chat":
		cmdChat(os.Args[2:])
	case "tickets":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: unibotctl tickets <list|show|resolve|stats>")
			os.Exit(1)
		}
		switch os.Args[2] {
		case "list":
			cmdTicketsList(os.Args[3:])
		case "show":
			requireArg(3, "unibotctl tickets show <id>")
			cmdTicketsShow(os.Args[3])
		case "resolve":
			cmdTicketsResolve(os.Args[3:])
		case "stats":
			cmdTicketsStats()
		default:
			fmt.Fprintf(os.Stderr, "unknown tickets subcommand: %s\n", os.Args[2])
			os.Exit(1)
		}
	case "faqs":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: unibotctl faqs <list|show|add|rm|import>")
			os.Exit(1)
		}
		switch os.Args[2] {
		case "list":
			cmdFAQsList(os.Args[3:])
		case "show":
			requireArg(3, "unibotctl faqs show <id>")
			cmdFAQsShow(os.Args[3])
		case "add":
			cmdFAQsAdd(os.Args[3:])
		case "rm":
			requireArg(3, "unibotctl faqs rm <id>")
			cmdFAQsRemove(os.Args[3])
		case "import":
			cmdFAQsImport(os.Args[3:])
		default:
			fmt.Fprintf(os.Stderr, "unknown faqs subcommand: %s\n", os.Args[2])
			os.Exit(1)
		}
	case "convs":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: unibotctl convs <list|show>")
			os.Exit(1)
		}
		switch os.Args[2] {
		case "list":
			cmdConvsList(os.Args[3:])
		case "show":
			requireArg(3, "unibotctl convs show <id>")
			cmdConvsShow(os.Args[3])
		default:
			fmt.Fprintf(os.Stderr, "unknown convs subcommand: %s\n", os.Args[2])
			os.Exit(1)
		}
	case "logs":
		cmdLogs(os.Args[2:])
	case "config":
		if len(os.Args) < 4 || os.Args[2] != "validate" {
			fmt.Fprintln(os.Stderr, "usage: unibotctl config validate <path>")
			os.Exit(1)
		}
		cmdConfigValidate(os.Args[3])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func requireArg(n int, usage string) {
	if len(os.Args) <= n {
		fmt.Fprintln(os.Stderr, "usage: "+usage)
		os.Exit(1)
	}
}

// --- commands ---

func cmdHealth() {
	body, err := apiGet("/api/health")
	if err != nil {
		fatal(err)
	}
	fmt.Println(string(bytes.TrimSpace(body)))
}

func cmdChat(args []string) {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	student := fs.String("student", envOr("UNIBOT_STUDENT", "cli"), "Student name for the turn")
	convID := fs.String("conv", "", "Conversation to continue (empty = new)")
	fs.Parse(args)

	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: unibotctl chat [--student name] [--conv id] <message>")
		os.Exit(1)
	}
	message := strings.Join(fs.Args(), " ")

	reqBody, _ := json.Marshal(map[string]string{
		"conversation_id": *convID,
		"student":         *student,
		"message":         message,
	})
	body, err := apiPost("/api/chat", reqBody)
	if err != nil {
		fatal(err)
	}

	var resp struct {
		ConversationID string `json:"conversation_id"`
		Message        struct {
			Text string `json:"text"`
		} `json:"message"`
		Ticket *struct {
			ID         string `json:"id"`
			Department string `json:"department"`
		} `json:"ticket"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		fatal(err)
	}
	fmt.Println(resp.Message.Text)
	if resp.Ticket != nil {
		fmt.Printf("\n[ticket %s -> %s]\n", resp.Ticket.ID, resp.Ticket.Department)
	}
	fmt.Printf("[conversation %s]\n", resp.ConversationID)
}

func cmdTicketsList(args []string) {
	fs := flag.NewFlagSet("tickets list", flag.ExitOnError)
	status := fs.String("status", "", "Filter by status (open|in-progress|resolved)")
	owner := fs.String("owner", "", "Filter by owner")
	department := fs.String("department", "", "Filter by department")
	limit := fs.Int("limit", 50, "Max results")
	fs.Parse(args)

	query := fmt.Sprintf("?limit=%d", *limit)
	if *status != "" {
		query += "&status=" + url.QueryEscape(*status)
	}
	if *owner != "" {
		query += "&owner=" + url.QueryEscape(*owner)
	}
	if *department != "" {
		query += "&department=" + url.QueryEscape(*department)
	}

	body, err := apiGet("/api/tickets" + query)
	if err != nil {
		fatal(err)
	}
	var tickets []map[string]any
	json.Unmarshal(body, &tickets)
	for _, t := range tickets {
		fmt.Printf("%-12s %-12s %-20s %s\n", t["id"], t["status"], t["department"], t["question"])
	}
}

func cmdTicketsShow(id string) {
	body, err := apiGet("/api/tickets/" + id)
	if err != nil {
		fatal(err)
	}
	fmt.Println(prettyJSON(body))
}

func cmdTicketsResolve(args []string) {
	fs := flag.NewFlagSet("tickets resolve", flag.ExitOnError)
	response := fs.String("response", "", "Resolution text sent to the student")
	fs.Parse(args)

	if fs.NArg() == 0 || *response == "" {
		fmt.Fprintln(os.Stderr, "usage: unibotctl tickets resolve --response <text> <id>")
		os.Exit(1)
	}
	id := fs.Arg(0)

	reqBody, _ := json.Marshal(map[string]string{"response": *response})
	body, err := apiPost("/api/tickets/"+id+"/resolve", reqBody)
	if err != nil {
		fatal(err)
	}
	fmt.Println(prettyJSON(body))
}

func cmdTicketsStats() {
	body, err := apiGet("/api/tickets/stats")
	if err != nil {
		fatal(err)
	}
	var stats map[string]int
	json.Unmarshal(body, &stats)
	for _, k := range []string{"open", "in-progress", "resolved"} {
		fmt.Printf("%-12s %d\n", k, stats[k])
	}
}

func cmdFAQsList(args []string) {
	fs := flag.NewFlagSet("faqs list", flag.ExitOnError)
	category := fs.String("category", "", "Filter by category")
	fs.Parse(args)

	query := ""
	if *category != "" {
		query = "?category=" + url.QueryEscape(*category)
	}
	body, err := apiGet("/api/faqs" + query)
	if err != nil {
		fatal(err)
	}
	var entries []map[string]any
	json.Unmarshal(body, &entries)
	for _, e := range entries {
		fmt.Printf("%-12s %-14s %s\n", e["id"], e["category"], e["question"])
	}
}

func cmdFAQsShow(id string) {
	body, err := apiGet("/api/faqs/" + id)
	if err != nil {
		fatal(err)
	}
	fmt.Println(prettyJSON(body))
}

func cmdFAQsAdd(args []string) {
	fs := flag.NewFlagSet("faqs add", flag.ExitOnError)
	question := fs.String("question", "", "FAQ question")
	answer := fs.String("answer", "", "FAQ answer")
	category := fs.String("category", "General", "FAQ category")
	keywords := fs.String("keywords", "", "Comma-separated match keywords")
	fs.Parse(args)

	if *question == "" || *answer == "" {
		fmt.Fprintln(os.Stderr, "usage: unibotctl faqs add --question <q> --answer <a> [--category c] [--keywords k1,k2]")
		os.Exit(1)
	}

	var kws []string
	for _, k := range strings.Split(*keywords, ",") {
		if k = strings.TrimSpace(k); k != "" {
			kws = append(kws, strings.ToLower(k))
		}
	}

	reqBody, _ := json.Marshal(map[string]any{
		"question": *question,
		"answer":   *answer,
		"category": *category,
		"keywords": kws,
	})
	body, err := apiPost("/api/faqs", reqBody)
	if err != nil {
		fatal(err)
	}
	fmt.Println(prettyJSON(body))
}

func cmdFAQsRemove(id string) {
	body, err := apiDo("DELETE", "/api/faqs/"+id, nil)
	if err != nil {
		fatal(err)
	}
	fmt.Println(string(bytes.TrimSpace(body)))
}

func cmdFAQsImport(args []string) {
	fs := flag.NewFlagSet("faqs import", flag.ExitOnError)
	category := fs.String("category", "General", "Category for the imported entry")
	dryRun := fs.Bool("dry-run", false, "Show the draft without saving")
	fs.Parse(args)

	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: unibotctl faqs import [--category c] [--dry-run] <url>")
		os.Exit(1)
	}

	reqBody, _ := json.Marshal(map[string]any{
		"url":      fs.Arg(0),
		"category": *category,
		"dry_run":  *dryRun,
	})
	body, err := apiPost("/api/faqs/import", reqBody)
	if err != nil {
		fatal(err)
	}
	fmt.Println(prettyJSON(body))
}

func cmdConvsList(args []string) {
	fs := flag.NewFlagSet("convs list", flag.ExitOnError)
	owner := fs.String("owner", "", "Filter by owner")
	limit := fs.Int("limit", 20, "Max results")
	fs.Parse(args)

	query := fmt.Sprintf("?limit=%d", *limit)
	if *owner != "" {
		query += "&owner=" + url.QueryEscape(*owner)
	}
	body, err := apiGet("/api/conversations" + query)
	if err != nil {
		fatal(err)
	}
	var convs []struct {
		ID       string `json:"id"`
		Owner    string `json:"owner"`
		Messages []any  `json:"messages"`
	}
	json.Unmarshal(body, &convs)
	for _, c := range convs {
		fmt.Printf("%-38s %-20s %d messages\n", c.ID, c.Owner, len(c.Messages))
	}
}

func cmdConvsShow(id string) {
	body, err := apiGet("/api/conversations/" + id)
	if err != nil {
		fatal(err)
	}
	var conv struct {
		Messages []struct {
			Sender string `json:"sender"`
			Text   string `json:"text"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(body, &conv); err != nil {
		fmt.Println(prettyJSON(body))
		return
	}
	for _, m := range conv.Messages {
		fmt.Printf("%-5s| %s\n", m.Sender, m.Text)
	}
}

func cmdLogs(args []string) {
	fs := flag.NewFlagSet("logs", flag.ExitOnError)
	level := fs.String("level", "", "Minimum level (info|warn|error)")
	limit := fs.Int("limit", 100, "Max entries")
	fs.Parse(args)

	query := fmt.Sprintf("?limit=%d", *limit)
	if *level != "" {
		query += "&level=" + url.QueryEscape(*level)
	}
	body, err := apiGet("/api/logs" + query)
	if err != nil {
		fatal(err)
	}
	fmt.Println(prettyJSON(body))
}

func cmdConfigValidate(path string) {
	if _, err := config.Load(path); err != nil {
		fmt.Fprintf(os.Stderr, "invalid: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("config is valid")
}

// --- Helpers ---

func apiGet(path string) ([]byte, error) {
	return apiDo("GET", path, nil)
}

func apiPost(path string, body []byte) ([]byte, error) {
	return apiDo("POST", path, body)
}

func apiDo(method, path string, body []byte) ([]byte, error) {
	base := envOr("UNIBOT_API_URL", "http://localhost:8420")

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, base+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key := os.Getenv("UNIBOT_API_KEY"); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

func prettyJSON(data []byte) string {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return string(data)
	}
	out, _ := json.MarshalIndent(v, "", "  ")
	return string(out)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func printUsage() {
	fmt.Println("unibotctl - university helpdesk CLI")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  health                      Check daemon health")
	fmt.Println("  chat <message>              Send a query (--student, --conv)")
	fmt.Println("  tickets list                List tickets (--status, --owner, --department, --limit)")
	fmt.Println("  tickets show <id>           Show ticket details")
	fmt.Println("  tickets resolve <id>        Resolve a ticket (--response)")
	fmt.Println("  tickets stats               Ticket counts by status")
	fmt.Println("  faqs list                   List FAQ entries (--category)")
	fmt.Println("  faqs show <id>              Show one entry")
	fmt.Println("  faqs add                    Add an entry (--question, --answer, --category, --keywords)")
	fmt.Println("  faqs rm <id>                Delete an entry")
	fmt.Println("  faqs import <url>           Draft an entry from a web page (--category, --dry-run)")
	fmt.Println("  convs list                  List conversations (--owner, --limit)")
	fmt.Println("  convs show <id>             Print a conversation transcript")
	fmt.Println("  logs                        Recent daemon logs (--level, --limit)")
	fmt.Println("  config validate <path>      Validate a config file")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  UNIBOT_API_URL   Daemon URL (default: http://localhost:8420)")
	fmt.Println("  UNIBOT_API_KEY   API key for authentication")
}
