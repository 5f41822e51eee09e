// pose-sim: stand-in pose estimator
// Streams synthetic joint frames to a protofito ingest endpoint over
// WebSocket, or publishes them to an MQTT topic.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/charmbracelet/fang"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/hiral-chawra/Protofito/pkg/protocol"
	"github.com/hiral-chawra/Protofito/pkg/source"
)

var version = "dev"

type options struct {
	url      string
	broker   string
	topic    string
	interval time.Duration
	period   time.Duration
	minAngle float64
	maxAngle float64
	count    int
	pingFreq time.Duration
}

// publisher sends one encoded frame message.
type publisher func(payload []byte) error

func main() {
	if err := fang.Execute(context.Background(), newCommand()); err != nil {
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "pose-sim",
		Short: "Stream synthetic joint frames to protofito",
		Long: `pose-sim stands in for a pose estimator. It sweeps an arm between two
angles and sends each frame to the protofito ingest WebSocket, or
publishes it to an MQTT topic when --mqtt is set.`,
		Version: version,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			return run(cmd.Context(), opts)
		},
		SilenceUsage: true,
	}

	f := cmd.Flags()
	f.StringVar(&opts.url, "url", "ws://localhost:8080/ws/frames", "Ingest WebSocket URL")
	f.StringVar(&opts.broker, "mqtt", "", "Publish to this MQTT broker instead of WebSocket")
	f.StringVar(&opts.topic, "topic", "protofito/joints", "MQTT topic for frames")
	f.DurationVar(&opts.interval, "interval", 50*time.Millisecond, "Time between frames")
	f.DurationVar(&opts.period, "period", 3*time.Second, "Duration of one rep")
	f.Float64Var(&opts.minAngle, "min", 70, "Lowest joint angle in degrees")
	f.Float64Var(&opts.maxAngle, "max", 175, "Highest joint angle in degrees")
	f.IntVarP(&opts.count, "count", "n", 0, "Stop after n frames (0 = run until interrupted)")
	f.DurationVar(&opts.pingFreq, "ping", 2*time.Second, "Latency ping interval (WebSocket only, 0 disables)")
	return cmd
}

func (o options) validate() error {
	if o.interval <= 0 || o.period <= 0 || o.minAngle >= o.maxAngle {
		return errors.New("need positive --interval and --period and --min < --max")
	}
	if o.count < 0 {
		return fmt.Errorf("--count must not be negative, got %d", o.count)
	}
	return nil
}

func run(ctx context.Context, opts options) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println()
	fmt.Println("🤸 Pose simulator")
	fmt.Printf("   %.0f°..%.0f° every %v, %v per frame\n", opts.minAngle, opts.maxAngle, opts.period, opts.interval)
	fmt.Println()

	var (
		send    publisher
		cleanup func()
		err     error
	)
	if opts.broker != "" {
		send, cleanup, err = dialMQTT(opts.broker, opts.topic)
	} else {
		send, cleanup, err = dialWebSocket(ctx, opts.url, opts.pingFreq)
	}
	if err != nil {
		return err
	}
	defer cleanup()

	gen := source.NewSynthetic(source.SyntheticConfig{
		Period:   opts.period,
		MinAngle: opts.minAngle,
		MaxAngle: opts.maxAngle,
	}, opts.interval)
	defer gen.Close()

	sent := 0
	for opts.count == 0 || sent < opts.count {
		frame, err := gen.Next(ctx)
		if err != nil {
			break
		}
		msg, err := protocol.NewFrameMessage(frame)
		if err != nil {
			return fmt.Errorf("encode frame: %w", err)
		}
		raw, err := msg.Bytes()
		if err != nil {
			return fmt.Errorf("encode frame: %w", err)
		}
		if err := send(raw); err != nil {
			log.Printf("⚠️  send failed: %v", err)
			break
		}
		sent++
		if sent%100 == 0 {
			fmt.Printf("📤 %d frames sent (angle %.1f°)\n", sent, gen.AngleAt(sent-1))
		}
	}

	fmt.Printf("👋 Sent %d frames\n", sent)
	return nil
}

func dialWebSocket(ctx context.Context, target string, pingEvery time.Duration) (publisher, func(), error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", target, err)
	}
	fmt.Printf("🔌 Connected to %s\n", target)

	writes := make(chan []byte, 16)
	done := make(chan struct{})

	// Single writer goroutine; gorilla allows one concurrent writer.
	go func() {
		defer close(done)
		var ticker <-chan time.Time
		if pingEvery > 0 {
			t := time.NewTicker(pingEvery)
			defer t.Stop()
			ticker = t.C
		}
		seq := 0
		for {
			select {
			case raw, ok := <-writes:
				if !ok {
					conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
				if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
					log.Printf("⚠️  write: %v", err)
					return
				}
			case <-ticker:
				seq++
				ping, err := protocol.NewPingMessage(strconv.Itoa(seq))
				if err != nil {
					continue
				}
				raw, _ := ping.Bytes()
				if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
					return
				}
			}
		}
	}()

	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			msg, err := protocol.ParseMessage(data)
			if err != nil || msg.Type != protocol.TypePong {
				continue
			}
			if pong, err := msg.GetPongData(); err == nil {
				fmt.Printf("🏓 ping %s: %dms\n", pong.ID, pong.LatencyMs)
			}
		}
	}()

	send := func(raw []byte) error {
		select {
		case writes <- raw:
			return nil
		case <-done:
			return fmt.Errorf("connection closed")
		}
	}
	cleanup := func() {
		close(writes)
		select {
		case <-done:
		case <-time.After(time.Second):
		}
		conn.Close()
	}
	return send, cleanup, nil
}

func dialMQTT(addr, topic string) (publisher, func(), error) {
	opts := mqtt.NewClientOptions().
		AddBroker(addr).
		SetClientID("protofito-pose-sim-" + strconv.FormatInt(time.Now().UnixNano(), 36))

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, nil, fmt.Errorf("connect %s: %w", addr, token.Error())
	}
	fmt.Printf("📡 Publishing to %s on %s\n", topic, addr)

	send := func(raw []byte) error {
		token := client.Publish(topic, 0, false, raw)
		if !token.WaitTimeout(2 * time.Second) {
			return fmt.Errorf("publish %s: timeout", topic)
		}
		return token.Error()
	}
	return send, func() { client.Disconnect(250) }, nil
}

