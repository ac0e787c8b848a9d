package eventstream_test

import (
	"encoding/json"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/designlog/pkg/eventstream"
	"github.com/papercomputeco/designlog/pkg/history"
)

var _ = Describe("Event", func() {
	now := time.Unix(1768210200, 0).UTC()
	entry := history.NewEntry(now, "nvidia", "qwen/qwen3.5-397b-a17b", "shot.png", `["Bento grid"]`, []string{"Bento grid"})

	It("marshals EntryRecordedEvent with expected top-level keys", func() {
		event := eventstream.NewEntryRecordedEvent(entry, "studio", eventstream.RunMeta{
			StartedAt:   now.Add(-2 * time.Second),
			CompletedAt: now,
			HasImage:    true,
		})

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("source"))
		Expect(got).To(HaveKey("run_meta"))
		Expect(got).To(HaveKey("entry"))
	})

	It("fills source and duration from the entry and run", func() {
		event := eventstream.NewEntryRecordedEvent(entry, "studio", eventstream.RunMeta{
			StartedAt:   now.Add(-1500 * time.Millisecond),
			CompletedAt: now,
		})

		Expect(event.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(event.EventType).To(Equal(eventstream.EventTypeEntryRecorded))
		Expect(strings.HasPrefix(event.EventID, "evt_")).To(BeTrue())
		Expect(event.Source).To(Equal(eventstream.EventSource{Host: "studio", Provider: "nvidia", Model: "qwen/qwen3.5-397b-a17b"}))
		Expect(event.RunMeta.DurationMs).To(Equal(int64(1500)))
		Expect(event.Entry.ID).To(Equal(entry.ID))
	})

	It("defines stable event constants", func() {
		Expect(eventstream.SchemaVersionV1).To(BeNumerically(">", 0))
		Expect(eventstream.EventTypeEntryRecorded).To(Equal("designlog.entry.recorded"))
	})

	It("provides ErrNilEntryEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilEntryEvent).To(MatchError("nil entry event"))
	})
})
