package main

import (
	"encoding/json"
	"flag"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/ImVexed/searchtree"
)

// This program simulates a field of sprites drifting inside a fixed world
// rectangle, indexed in a searchtree. Clients connect over a websocket and
// probe the world: each probe returns the sprites near a point, answered
// from the tree between rebalance barriers.

const (
	tickRate     = time.Second / 30
	spriteSize   = 20.0
	sizeJitter   = 5.0
	maxSpeed     = 90.0 // units per second
	probeSize    = 40.0
	snapshotTick = 300
)

var (
	addr     = flag.String("addr", ":8080", "http service address")
	sprites  = flag.Int("sprites", 200, "number of simulated sprites")
	worldW   = flag.Float64("width", 1024, "world width")
	worldH   = flag.Float64("height", 768, "world height")
	snapshot = flag.String("snapshot", "", "write a BMP of the tree to this path every few seconds")
)

type Sprite struct {
	ID   uuid.UUID
	pos  searchtree.Vec2
	vel  searchtree.Vec2
	size float64
}

func (s *Sprite) Bounds() searchtree.Rect {
	return searchtree.Rect{
		X:      s.pos.X - s.size/2,
		Y:      s.pos.Y - s.size/2,
		Width:  s.size,
		Height: s.size,
	}
}

type probe struct {
	region searchtree.Rect
	reply  chan<- []byte
}

type World struct {
	bounds  searchtree.Rect
	sprites []*Sprite
	tree    *searchtree.Tree[*Sprite, searchtree.Rect]
	reb     *searchtree.Rebalancer[*Sprite, searchtree.Rect]
	probes  chan probe
	tick    uint64
}

func NewWorld(bounds searchtree.Rect, count int) *World {
	w := &World{
		bounds: bounds,
		tree:   searchtree.New[*Sprite, searchtree.Rect](searchtree.RectPredicate[*Sprite]{}),
		probes: make(chan probe, 64),
	}
	w.reb = searchtree.NewRebalancer(w.tree)

	for i := 0; i < count; i++ {
		s := &Sprite{
			ID:   uuid.New(),
			size: spriteSize + (rand.Float64()*2-1)*sizeJitter,
			pos: searchtree.Vec2{
				X: bounds.X + rand.Float64()*bounds.Width,
				Y: bounds.Y + rand.Float64()*bounds.Height,
			},
			vel: searchtree.Vec2{
				X: (rand.Float64()*2 - 1) * maxSpeed,
				Y: (rand.Float64()*2 - 1) * maxSpeed,
			},
		}
		w.sprites = append(w.sprites, s)
		w.tree.Add(s)
	}
	w.tree.Rebalance()

	return w
}

func (w *World) Run() {
	ticker := time.NewTicker(tickRate)
	defer ticker.Stop()

	last := time.Now()
	for now := range ticker.C {
		dt := now.Sub(last).Seconds()
		last = now

		// The tree is off limits while a rebalance pass is in flight.
		w.reb.Wait()

		w.step(dt)
		w.answerProbes()
		w.maybeSnapshot()

		// Overlap the next rebalance with the idle part of the tick.
		w.reb.Start()

		w.tick++
		if spent := time.Since(now); spent > tickRate {
			log.WithField("spent", spent).Warn("tick overran")
		}
	}
}

func (w *World) step(dt float64) {
	for _, s := range w.sprites {
		s.pos.X += s.vel.X * dt
		s.pos.Y += s.vel.Y * dt

		half := s.size / 2
		if s.pos.X-half < w.bounds.X && s.vel.X < 0 {
			s.vel.X = -s.vel.X
		}
		if s.pos.X+half > w.bounds.X+w.bounds.Width && s.vel.X > 0 {
			s.vel.X = -s.vel.X
		}
		if s.pos.Y-half < w.bounds.Y && s.vel.Y < 0 {
			s.vel.Y = -s.vel.Y
		}
		if s.pos.Y+half > w.bounds.Y+w.bounds.Height && s.vel.Y > 0 {
			s.vel.Y = -s.vel.Y
		}
	}
}

type spriteState struct {
	ID   string  `json:"id"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Size float64 `json:"size"`
}

type probeReply struct {
	Tick    uint64        `json:"tick"`
	Sprites []spriteState `json:"sprites"`
}

func (w *World) answerProbes() {
	for {
		select {
		case p := <-w.probes:
			reply := probeReply{Tick: w.tick}
			for _, s := range w.tree.NearbyValues(p.region) {
				reply.Sprites = append(reply.Sprites, spriteState{
					ID:   s.ID.String(),
					X:    s.pos.X,
					Y:    s.pos.Y,
					Size: s.size,
				})
			}
			data, err := json.Marshal(reply)
			if err != nil {
				log.WithError(err).Error("marshal probe reply")
				continue
			}
			select {
			case p.reply <- data:
			default:
				// client stopped draining, drop the reply
			}
		default:
			return
		}
	}
}

func (w *World) maybeSnapshot() {
	if *snapshot == "" || w.tick%snapshotTick != 0 {
		return
	}
	if err := searchtree.Image(w.tree, *snapshot); err != nil {
		log.WithError(err).Error("write tree snapshot")
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type probeRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type client struct {
	world *World
	conn  *websocket.Conn
	send  chan []byte
	done  chan struct{}
}

func (w *World) serveProbe(rw http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(rw, r, nil)
	if err != nil {
		log.WithError(err).Error("websocket upgrade")
		return
	}
	c := &client{world: w, conn: conn, send: make(chan []byte, 8), done: make(chan struct{})}

	log.WithField("remote", conn.RemoteAddr()).Info("client connected")
	go c.writePump()
	c.readPump()
}

func (c *client) readPump() {
	defer func() {
		close(c.done)
		c.conn.Close()
		log.WithField("remote", c.conn.RemoteAddr()).Info("client disconnected")
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var req probeRequest
		if err := json.Unmarshal(data, &req); err != nil {
			log.WithError(err).Warn("bad probe request")
			continue
		}

		region := searchtree.Rect{
			X:      req.X - probeSize/2,
			Y:      req.Y - probeSize/2,
			Width:  probeSize,
			Height: probeSize,
		}
		select {
		case c.world.probes <- probe{region: region, reply: c.send}:
		default:
			log.Warn("probe queue full, dropping request")
		}
	}
}

func (c *client) writePump() {
	for {
		select {
		case msg := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func main() {
	flag.Parse()

	world := NewWorld(searchtree.Rect{Width: *worldW, Height: *worldH}, *sprites)
	go world.Run()

	http.HandleFunc("/probe", world.serveProbe)

	log.WithFields(log.Fields{
		"addr":    *addr,
		"sprites": *sprites,
	}).Info("simulation up")

	if err := http.ListenAndServe(*addr, nil); err != nil {
		log.WithError(err).Fatal("listen")
	}
}
