package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gookit/color"

	"github.com/roomcast/roomcast/internal/client"
	"github.com/roomcast/roomcast/pkg/protocol"
)

func main() {
	serverAddr := flag.String("server", "localhost:8080", "Server address (e.g., localhost:8080)")
	username := flag.String("username", "", "Display name to join with (empty for a generated one)")
	flag.Parse()

	c := client.New(*serverAddr)
	if err := c.Connect(); err != nil {
		log.Fatalf("Failed to connect to server: %v", err)
	}
	defer c.Disconnect()

	if err := c.Join(*username); err != nil {
		log.Fatalf("Failed to join chat: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for res := range c.Responses() {
			render(res)
		}
	}()

	fmt.Println("Type your messages ('/who', '/rooms', '/pm <user> <text>', '/mv <room>', or 'quit' to exit):")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "quit" || text == "exit" {
			break
		}
		if err := c.Say(text); err != nil {
			log.Printf("Failed to send message: %v", err)
			break
		}
	}
	if err := scanner.Err(); err != nil {
		log.Printf("Error reading input: %v", err)
	}

	c.Disconnect()
	<-done
	log.Println("Disconnected from server")
}

func render(res protocol.Message) {
	switch res := res.(type) {
	case protocol.ChatPublic:
		color.Cyan.Printf("[%s] ", res.From)
		fmt.Println(res.Text)
	case protocol.ChatPrivate:
		color.Magenta.Printf("[pm from %s] %s\n", res.From, res.Text)
	case protocol.JoinedServer:
		color.Green.Printf("*** Joined as %s ***\n", res.Username)
	case protocol.JoinedRoom:
		color.Green.Printf("*** Entered room %s ***\n", res.Room)
	case protocol.UserJoinedNotice:
		color.Yellow.Printf("*** %s joined the room ***\n", res.Name)
	case protocol.SystemNotice:
		color.Yellow.Printf("*** %s ***\n", res.Text)
	}
}
