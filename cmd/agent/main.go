package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"

	"docsync/internal/client"
	"docsync/internal/models"

	"github.com/docopt/docopt-go"
	"github.com/gorilla/websocket"
)

// A headless collaboration client: joins a document, relays terminal edits
// through the gateway and folds remote events into a local session store.

const usage = `docsync agent.

Usage:
    agent --user=<name> --doc=<id> [--server=<url>] [--reconcile]

Options:
    --user=<name>    Username to log in with.
    --doc=<id>       Document to join.
    --server=<url>   Server base URL [default: http://localhost:8080].
    --reconcile      Transform remote operations against in-flight local edits.

Commands once connected:
    i <pos> <text>   insert text at offset
    d <pos> <len>    delete a span
    c <pos>          announce cursor position
    show             print buffer, members and cursors
    save             persist the local buffer as the document snapshot
    quit             leave and exit
`

type wsSender struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (s *wsSender) Send(msg models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ws.WriteJSON(msg)
}

func main() {
	opts, err := docopt.ParseDoc(usage)
	if err != nil {
		log.Fatal(err)
	}

	username, _ := opts.String("--user")
	docID, _ := opts.String("--doc")
	server, _ := opts.String("--server")
	reconcile, _ := opts.Bool("--reconcile")

	token, userID, err := login(server, username)
	if err != nil {
		log.Fatalf("login failed: %v", err)
	}
	log.Printf("logged in as %s (%s)", username, userID)

	snapshot, err := fetchSnapshot(server, token, docID)
	if err != nil {
		log.Fatalf("snapshot fetch failed: %v", err)
	}

	wsURL := strings.Replace(server, "http", "ws", 1) + "/ws?token=" + token
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatalf("websocket dial failed: %v", err)
	}
	defer ws.Close()

	sender := &wsSender{ws: ws}
	store := client.NewStore(userID, sender, client.Options{ReconcileInFlight: reconcile})

	go func() {
		for {
			var msg models.Message
			if err := ws.ReadJSON(&msg); err != nil {
				log.Printf("connection closed: %v", err)
				os.Exit(0)
			}
			if err := store.HandleMessage(msg); err != nil {
				log.Printf("apply failed: %v", err)
				continue
			}
			switch msg.Type {
			case models.MsgUserJoined:
				log.Printf("* %s joined (%s)", msg.UserID, strings.Join(msg.Users, ", "))
			case models.MsgUserLeft:
				log.Printf("* %s left (%s)", msg.UserID, strings.Join(msg.Users, ", "))
			case models.MsgDocumentOperation:
				log.Printf("* buffer is now %q", store.Buffer())
			}
		}
	}()

	if err := store.Join(docID, snapshot); err != nil {
		log.Fatalf("join failed: %v", err)
	}
	log.Printf("joined %s, buffer %q", docID, store.Buffer())

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "i":
			if len(fields) < 3 {
				fmt.Println("usage: i <pos> <text>")
				continue
			}
			pos, _ := strconv.Atoi(fields[1])
			if _, err := store.Insert(pos, strings.Join(fields[2:], " ")); err != nil {
				log.Printf("insert failed: %v", err)
			}
			fmt.Printf("buffer: %q\n", store.Buffer())
		case "d":
			if len(fields) < 3 {
				fmt.Println("usage: d <pos> <len>")
				continue
			}
			pos, _ := strconv.Atoi(fields[1])
			length, _ := strconv.Atoi(fields[2])
			if _, err := store.Delete(pos, length); err != nil {
				log.Printf("delete failed: %v", err)
			}
			fmt.Printf("buffer: %q\n", store.Buffer())
		case "c":
			if len(fields) < 2 {
				fmt.Println("usage: c <pos>")
				continue
			}
			pos, _ := strconv.Atoi(fields[1])
			if err := store.MoveCursor(pos); err != nil {
				log.Printf("cursor failed: %v", err)
			}
		case "show":
			fmt.Printf("buffer:  %q\n", store.Buffer())
			fmt.Printf("members: %s\n", strings.Join(store.Members(), ", "))
			for user, pos := range store.Cursors() {
				fmt.Printf("cursor:  %s @ %d\n", user, pos)
			}
		case "save":
			if err := saveSnapshot(server, token, docID, store.Buffer()); err != nil {
				log.Printf("save failed: %v", err)
			} else {
				fmt.Println("snapshot saved")
			}
		case "quit":
			store.Leave()
			return
		default:
			fmt.Println("commands: i, d, c, show, save, quit")
		}
	}
}

func login(server, username string) (token, userID string, err error) {
	body, _ := json.Marshal(map[string]string{"username": username})
	resp, err := http.Post(server+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("login: status %d", resp.StatusCode)
	}

	var out struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", err
	}
	return out.Token, out.User.ID, nil
}

func fetchSnapshot(server, token, docID string) (string, error) {
	req, err := http.NewRequest("GET", server+"/api/documents/"+docID, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("snapshot: status %d", resp.StatusCode)
	}

	var doc models.Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return "", err
	}
	return doc.Content, nil
}

func saveSnapshot(server, token, docID, content string) error {
	body, _ := json.Marshal(models.DocumentContentUpdate{Content: content})
	req, err := http.NewRequest("PUT", server+"/api/documents/"+docID+"/content", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("save: status %d", resp.StatusCode)
	}
	return nil
}
