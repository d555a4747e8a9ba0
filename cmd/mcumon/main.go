package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/robotalks/mcu.go/pkg/comm/mqtt"
)

var (
	mqttURL = "mqtt://localhost:1883/mcu/"
)

func init() {
	if val := os.Getenv("MCU_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}

	q.Sub("#", mqtt.Handler(func(topic string, payload []byte) {
		if strings.HasSuffix(topic, "/meta") {
			if len(payload) == 0 {
				log.Printf("%s: (gone)", topic)
				return
			}
			log.Printf("%s: %s", topic, string(payload))
			return
		}
		// console traffic, line per log entry
		for _, line := range strings.Split(string(payload), "\n") {
			if line = strings.TrimRight(line, "\r"); line != "" {
				log.Printf("%s: %s", topic, line)
			}
		}
	}))
	if err = q.ConnectWait(); err != nil {
		log.Fatalln(err)
	}
	<-(chan struct{})(nil)
}
