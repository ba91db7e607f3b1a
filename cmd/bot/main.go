package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"

	"dragonpot.game/internal/observerproto"
	"dragonpot.game/internal/protocol"
)

func main() {
	var (
		url         = flag.String("url", "ws://127.0.0.1:8080/v1/observe", "observer ws url")
		reach       = flag.Float64("reach", 2, "distance at which the bot interacts")
		every       = flag.Int("every", 2, "ticks between tick messages")
		autoRestart = flag.Bool("restart", true, "send RESTART when a round ends")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sub := observerproto.SubscribeMsg{
		Type:            observerproto.TypeSubscribe,
		ProtocolVersion: observerproto.Version,
		EveryTicks:      *every,
	}
	if err := conn.WriteJSON(sub); err != nil {
		logger.Fatalf("send SUBSCRIBE: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.Close()
	}()

	b := &brain{reach: *reach, restart: *autoRestart}
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			logger.Printf("read: %v", err)
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case observerproto.TypeTick:
			var tm observerproto.TickMsg
			if err := json.Unmarshal(msg, &tm); err != nil {
				continue
			}
			if act := b.next(&tm); act != nil {
				if err := conn.WriteJSON(act); err != nil {
					logger.Printf("send ACT: %v", err)
					return
				}
			}
		case protocol.TypeActResult:
			var res protocol.ActResultMsg
			if err := json.Unmarshal(msg, &res); err != nil {
				continue
			}
			if !res.Accepted {
				logger.Printf("%s %s rejected: %s %s", res.ID, res.Action, res.Code, res.Message)
			}
		}
	}
}
