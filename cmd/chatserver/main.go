// Command chatserver is a minimal room-based chat demo exercising
// namespaces, rooms, broadcast targeting and acks.
package main

import (
	"log"
	"net/http"

	"github.com/go-sio/sio/engineio"
	"github.com/go-sio/sio/socket"
)

func main() {
	engine := engineio.NewServer(nil)
	server := socket.NewServer(engine, nil)

	server.Sockets().On("connection", func(args ...any) {
		s := args[0].(*socket.Socket)
		log.Printf("client connected: %s", s.Id())

		s.On("join", func(args ...any) {
			room, ok := args[0].(string)
			if !ok {
				return
			}
			s.Join(socket.Room(room))
			log.Printf("%s joined %s", s.Id(), room)
			s.To(socket.Room(room)).Emit("user_joined", map[string]any{
				"socketId": s.Id(),
				"room":     room,
			})
		})

		s.On("leave", func(args ...any) {
			room, ok := args[0].(string)
			if !ok {
				return
			}
			s.Leave(socket.Room(room))
			log.Printf("%s left %s", s.Id(), room)
			server.To(socket.Room(room)).Emit("user_left", map[string]any{
				"socketId": s.Id(),
				"room":     room,
			})
		})

		s.On("message", func(args ...any) {
			if len(args) == 0 {
				return
			}
			message := args[0]
			log.Printf("message from %s: %v", s.Id(), message)
			for _, room := range s.Rooms().Keys() {
				if room == socket.Room(s.Id()) {
					continue
				}
				server.To(room).Emit("message", map[string]any{
					"from":    s.Id(),
					"message": message,
					"room":    room,
				})
			}
		})

		s.On("message_ack", func(args ...any) {
			if len(args) < 2 {
				return
			}
			message := args[0]
			ack, ok := args[1].(func(...any))
			if !ok {
				return
			}
			log.Printf("message (ack) from %s: %v", s.Id(), message)
			ack("message received")
			for _, room := range s.Rooms().Keys() {
				if room == socket.Room(s.Id()) {
					continue
				}
				server.To(room).Emit("message", map[string]any{
					"from":    s.Id(),
					"message": message,
					"room":    room,
				})
			}
		})

		s.On("ping", func(args ...any) {
			s.Emit("pong", "pong from server")
		})

		s.On("disconnect", func(args ...any) {
			var reason any
			if len(args) > 0 {
				reason = args[0]
			}
			log.Printf("client disconnected: %s, reason: %v", s.Id(), reason)
		})

		s.Emit("welcome", map[string]any{
			"message": "welcome to the chat server",
			"id":      s.Id(),
		})
	})

	http.Handle("/socket.io/", server)
	log.Println("chat server listening on :3000")
	log.Fatal(http.ListenAndServe(":3000", nil))
}
