package seeder

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

const createdAtLayout = "2006-01-02 15:04:05"

// Delivery is one webhook body ready to post to /webhook/aloware.
type Delivery struct {
	Kind       string
	ID         string
	AgentID    string
	Redelivery bool
	Body       []byte
}

// AlowarePayload is the flat Aloware webhook shape.
type AlowarePayload struct {
	Event string      `json:"event"`
	Body  AlowareBody `json:"body"`
}

type AlowareBody struct {
	ID        string  `json:"id"`
	UserID    int     `json:"user_id"`
	Direction int     `json:"direction"`
	Type      int     `json:"type"`
	CreatedAt string  `json:"created_at"`
	Contact   Contact `json:"contact"`
}

type Contact struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
	Timezone    string `json:"timezone,omitempty"`
}

type kindSpec struct {
	event     string
	direction int
	typeCode  int
}

var kinds = map[string]kindSpec{
	KindOutboundCall: {event: "call.outbound.completed", direction: 2, typeCode: 1},
	KindOutboundText: {event: "sms.outbound.delivered", direction: 2, typeCode: 2},
	KindInboundCall:  {event: "call.inbound.completed", direction: 1, typeCode: 1},
	KindInboundText:  {event: "sms.inbound.received", direction: 1, typeCode: 2},
}

// Generator produces Aloware deliveries. A configured share of them are
// byte-identical repeats of earlier ones, the way Aloware retries.
type Generator struct {
	faker  *gofakeit.Faker
	cfg    DefaultsConfig
	agents []int
	sent   []Delivery
	now    func() time.Time
}

// NewGenerator builds a generator. A zero Seed draws a random one.
func NewGenerator(cfg DefaultsConfig) *Generator {
	faker := gofakeit.New(cfg.Seed)
	agents := make([]int, cfg.Agents)
	for i := range agents {
		agents[i] = faker.Number(1000, 99999)
	}
	return &Generator{
		faker:  faker,
		cfg:    cfg,
		agents: agents,
		now:    time.Now,
	}
}

// Agents returns the agent ids deliveries are attributed to.
func (g *Generator) Agents() []int {
	return append([]int(nil), g.agents...)
}

// Next returns delivery number index out of cfg.Count.
func (g *Generator) Next(index int) Delivery {
	if len(g.sent) > 0 && g.faker.Float64Range(0, 1) < g.cfg.Duplicates {
		d := g.sent[g.faker.Number(0, len(g.sent)-1)]
		d.Redelivery = true
		return d
	}

	kind := g.cfg.EventKinds[g.faker.Number(0, len(g.cfg.EventKinds)-1)]
	spec := kinds[kind]
	agent := g.agents[g.faker.Number(0, len(g.agents)-1)]

	payload := AlowarePayload{
		Event: spec.event,
		Body: AlowareBody{
			ID:        g.faker.UUID(),
			UserID:    agent,
			Direction: spec.direction,
			Type:      spec.typeCode,
			CreatedAt: g.eventTime(index).UTC().Format(createdAtLayout),
			Contact: Contact{
				FirstName:   g.faker.FirstName(),
				LastName:    g.faker.LastName(),
				PhoneNumber: g.faker.Phone(),
				Timezone:    g.timezone(),
			},
		},
	}

	// Marshal of this fixed struct cannot fail.
	body, _ := json.Marshal(payload)
	d := Delivery{
		Kind:    kind,
		ID:      payload.Body.ID,
		AgentID: strconv.Itoa(agent),
		Body:    body,
	}
	g.sent = append(g.sent, d)
	return d
}

// eventTime spreads deliveries evenly backwards over TimeSpread with
// +/-40% jitter.
func (g *Generator) eventTime(index int) time.Time {
	now := g.now()
	spread := g.cfg.TimeSpread
	if spread <= 0 || g.cfg.Count <= 0 {
		return now
	}

	base := float64(spread) / float64(g.cfg.Count)
	offset := time.Duration(float64(index)*base + g.faker.Float64Range(-1, 1)*base*0.4)
	if offset < 0 {
		offset = 0
	}
	if offset > spread {
		offset = spread
	}
	return now.Add(-(spread - offset))
}

func (g *Generator) timezone() string {
	if len(g.cfg.Timezones) == 0 {
		return ""
	}
	return g.cfg.Timezones[g.faker.Number(0, len(g.cfg.Timezones)-1)]
}
