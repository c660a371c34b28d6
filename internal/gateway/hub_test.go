package gateway

import (
	"errors"
	"sync"
	"testing"

	"tasksync/internal/models"
)

type recorder struct {
	mu    sync.Mutex
	docs  []models.Document
	metas []Metadata
}

func (r *recorder) fn(doc models.Document, meta Metadata) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = append(r.docs, doc)
	r.metas = append(r.metas, meta)
}

func (r *recorder) revisions() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int64, len(r.docs))
	for i, d := range r.docs {
		out[i] = d.Revision
	}
	return out
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.docs)
}

func TestHub_SubscribeDeliversLoadedDocumentFirst(t *testing.T) {
	hub := NewHub()
	rec := &recorder{}

	unsubscribe, err := hub.Subscribe("alice", func() (models.Document, error) {
		return models.Document{Revision: 3}, nil
	}, rec.fn)
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	defer unsubscribe()

	hub.Publish("alice", models.Document{Revision: 4}, Metadata{})

	got := rec.revisions()
	if len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Errorf("revisions = %v, want [3 4]", got)
	}
}

func TestHub_SubscribeLoadError(t *testing.T) {
	hub := NewHub()
	boom := errors.New("boom")

	_, err := hub.Subscribe("alice", func() (models.Document, error) {
		return models.Document{}, boom
	}, (&recorder{}).fn)
	if !errors.Is(err, boom) {
		t.Fatalf("Subscribe() error = %v, want boom", err)
	}
	if n := hub.Subscribers("alice"); n != 0 {
		t.Errorf("Subscribers() = %d after failed subscribe", n)
	}
}

func TestHub_DropsOutdatedConfirmedSnapshots(t *testing.T) {
	hub := NewHub()
	rec := &recorder{}

	unsubscribe, err := hub.Subscribe("alice", nil, rec.fn)
	if err != nil {
		t.Fatal(err)
	}
	defer unsubscribe()

	hub.Publish("alice", models.Document{Revision: 5}, Metadata{})
	hub.Publish("alice", models.Document{Revision: 4}, Metadata{})
	hub.Publish("alice", models.Document{Revision: 1}, Metadata{PendingWrite: true})
	hub.Publish("alice", models.Document{Revision: 6}, Metadata{})

	got := rec.revisions()
	want := []int64{5, 1, 6}
	if len(got) != len(want) {
		t.Fatalf("revisions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("revisions = %v, want %v", got, want)
		}
	}
}

func TestHub_KeysAreIsolatedAndUnsubscribeStops(t *testing.T) {
	hub := NewHub()
	alice, bob := &recorder{}, &recorder{}

	unsubAlice, _ := hub.Subscribe("alice", nil, alice.fn)
	unsubBob, _ := hub.Subscribe("bob", nil, bob.fn)
	defer unsubBob()

	hub.Publish("alice", models.Document{Revision: 1}, Metadata{})
	if alice.count() != 1 || bob.count() != 0 {
		t.Fatalf("alice=%d bob=%d deliveries", alice.count(), bob.count())
	}

	unsubAlice()
	unsubAlice()
	hub.Publish("alice", models.Document{Revision: 2}, Metadata{})

	if alice.count() != 1 {
		t.Errorf("delivery after unsubscribe: %d", alice.count())
	}
	if n := hub.Subscribers("alice"); n != 0 {
		t.Errorf("Subscribers(alice) = %d, want 0", n)
	}
	if n := hub.Subscribers("bob"); n != 1 {
		t.Errorf("Subscribers(bob) = %d, want 1", n)
	}
}

func TestHub_ConcurrentPublish(t *testing.T) {
	hub := NewHub()
	rec := &recorder{}
	unsubscribe, _ := hub.Subscribe("alice", nil, rec.fn)
	defer unsubscribe()

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(rev int64) {
			defer wg.Done()
			hub.Publish("alice", models.Document{Revision: rev}, Metadata{})
		}(int64(i))
	}
	wg.Wait()

	got := rec.revisions()
	for i := 1; i < len(got); i++ {
		if got[i] < got[i-1] {
			t.Fatalf("revisions went backwards: %v", got)
		}
	}
}

func TestHub_ResentRevisionIsNotRedelivered(t *testing.T) {
	tests := []struct {
		name    string
		load    LoadFunc
		publish []models.Document
		want    []int64
	}{
		{
			name:    "same revision as the initial load",
			load:    func() (models.Document, error) { return models.Document{Revision: 3}, nil },
			publish: []models.Document{{Revision: 3}, {Revision: 4}, {Revision: 4}},
			want:    []int64{3, 4},
		},
		{
			name:    "missing document at revision zero",
			load:    func() (models.Document, error) { return models.Document{}, nil },
			publish: []models.Document{{}, {Revision: 1}},
			want:    []int64{0, 1},
		},
		{
			name:    "first confirmed snapshot without a load",
			publish: []models.Document{{}, {}},
			want:    []int64{0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := NewHub()
			rec := &recorder{}
			unsubscribe, err := hub.Subscribe("alice", tt.load, rec.fn)
			if err != nil {
				t.Fatal(err)
			}
			defer unsubscribe()

			for _, doc := range tt.publish {
				hub.Publish("alice", doc, Metadata{})
			}

			got := rec.revisions()
			if len(got) != len(tt.want) {
				t.Fatalf("revisions = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("revisions = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestHub_PendingEchoDoesNotCountAsFirstDelivery(t *testing.T) {
	hub := NewHub()
	rec := &recorder{}
	unsubscribe, _ := hub.Subscribe("alice", nil, rec.fn)
	defer unsubscribe()

	hub.Publish("alice", models.Document{}, Metadata{PendingWrite: true})
	hub.Publish("alice", models.Document{}, Metadata{})

	if rec.count() != 2 {
		t.Errorf("deliveries = %d, want the echo and the first confirmation", rec.count())
	}
}
