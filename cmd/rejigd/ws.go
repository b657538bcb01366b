package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

// WebSocketService registers the /ws/api endpoint.  Each text frame
// is one Request; each reply frame is one Response.
func (s *Service) WebSocketService(ctx context.Context) error {

	var upgrader = websocket.Upgrader{}

	api := func(w http.ResponseWriter, r *http.Request) {
		Logf("Service.WebSocketService connection from %s", r.RemoteAddr)

		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error", err)
			return
		}
		defer c.Close()

		for {
			mt, message, err := c.ReadMessage()
			if err != nil {
				Logf("read error %v", err)
				break
			}

			var req Request
			if err := json.Unmarshal(message, &req); err != nil {
				js, _ := json.Marshal(&Response{Error: "can't parse: " + err.Error()})
				if err = c.WriteMessage(mt, js); err != nil {
					log.Println("write (err)", err)
					break
				}
				continue
			}

			Logf("request %s", JS(&req))

			resp := s.Do(ctx, &req)

			Logf("response %s", JS(resp))

			js, err := json.Marshal(resp)
			if err != nil {
				log.Printf("Service.WebSocketService Marshal error %v on %#v", err, resp)
				continue
			}
			if err = c.WriteMessage(mt, js); err != nil {
				log.Println("write error", err)
				break
			}
		}
	}

	http.HandleFunc("/ws/api", api)

	return nil
}
