package analyzer

import (
	"context"
	"fmt"

	"github.com/raysh454/hdrscan/internal/model"
)

// Item is one unit of work handed to the worker pool. Load runs on a worker
// and produces the record, or an error when the pair cannot be used.
type Item struct {
	Ref  string
	Load func(ctx context.Context) (*model.Record, error)
}

// Source yields work items. The channel is closed once the source is drained
// or ctx is done.
type Source interface {
	Items(ctx context.Context) <-chan Item
}

// SliceSource serves a fixed list of items in order.
type SliceSource []Item

func (s SliceSource) Items(ctx context.Context) <-chan Item {
	ch := make(chan Item)
	go func() {
		defer close(ch)
		for _, it := range s {
			select {
			case <-ctx.Done():
				return
			case ch <- it:
			}
		}
	}()
	return ch
}

// RecordItem wraps an already built record.
func RecordItem(rec *model.Record) Item {
	return Item{
		Ref:  rec.EndpointKey(),
		Load: func(context.Context) (*model.Record, error) { return rec, nil },
	}
}

// RawPair is a captured request and response in wire form.
type RawPair struct {
	Request    string `json:"request" yaml:"request"`
	Response   string `json:"response" yaml:"response"`
	UseTLS     bool   `json:"use_tls" yaml:"use_tls"`
	ServerName string `json:"server_name,omitempty" yaml:"server_name,omitempty"`
}

// Record parses the pair.
func (p RawPair) Record() (*model.Record, error) {
	return model.ParseRecord([]byte(p.Request), []byte(p.Response), p.UseTLS, p.ServerName)
}

// RawSource turns raw pairs into items that are parsed on the workers.
func RawSource(pairs []RawPair) SliceSource {
	items := make(SliceSource, len(pairs))
	for i, p := range pairs {
		items[i] = Item{
			Ref:  fmt.Sprintf("pair %d", i),
			Load: func(context.Context) (*model.Record, error) { return p.Record() },
		}
	}
	return items
}
