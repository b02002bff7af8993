package fanout

import "github.com/trailhaven/ecowatch/internal/domain"

// Publisher is anything events can be published onto.
type Publisher interface {
	Publish(ev domain.BroadcastEvent)
}

type tee []Publisher

func (t tee) Publish(ev domain.BroadcastEvent) {
	for _, p := range t {
		p.Publish(ev)
	}
}

// Tee fans one Publish call out to several publishers, e.g. the hub plus
// the optional Kafka mirror.
func Tee(pubs ...Publisher) Publisher {
	return tee(pubs)
}
