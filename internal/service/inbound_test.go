package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/LeventeLantos/wa-relay/internal/model"
	"github.com/LeventeLantos/wa-relay/internal/service"
)

const textNotification = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "WABA_ID",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "metadata": {"display_phone_number": "15559999999", "phone_number_id": "PHONE_ID"},
        "messages": [{
          "from": "15551234567",
          "id": "wamid.ID",
          "timestamp": "1700000000",
          "type": "text",
          "text": {"body": "hi"}
        }]
      }
    }]
  }]
}`

func TestInbound_Verify(t *testing.T) {
	t.Parallel()

	in := service.NewInbound("s3cret", &memRecords{})

	got, err := in.Verify("s3cret", "1158201444")
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if got != "1158201444" {
		t.Fatalf("expected challenge echoed, got %q", got)
	}

	for _, token := range []string{"", "S3CRET", "s3cret ", "other"} {
		if _, err := in.Verify(token, "x"); !errors.Is(err, service.ErrInvalidVerifyToken) {
			t.Fatalf("token %q: expected ErrInvalidVerifyToken, got %v", token, err)
		}
	}
}

func TestInbound_IngestStoresReceivedRecord(t *testing.T) {
	t.Parallel()

	records := &memRecords{}
	in := service.NewInbound("s3cret", records)

	rec, err := in.Ingest(context.Background(), []byte(textNotification))
	if err != nil {
		t.Fatalf("Ingest() error: %v", err)
	}
	if rec.ID == 0 {
		t.Fatalf("expected record id to be assigned")
	}

	got := records.all()
	if len(got) != 1 {
		t.Fatalf("expected one record, got %d", len(got))
	}
	want := model.Record{
		ID:        1,
		Sender:    "15551234567",
		Receiver:  "15559999999",
		Content:   "hi",
		Timestamp: time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC),
		Status:    model.Received,
	}
	if !got[0].Timestamp.Equal(want.Timestamp) {
		t.Fatalf("expected timestamp %v, got %v", want.Timestamp, got[0].Timestamp)
	}
	got[0].Timestamp = want.Timestamp
	if got[0] != want {
		t.Fatalf("expected %+v, got %+v", want, got[0])
	}
}

func TestInbound_ReplayIsStoredTwice(t *testing.T) {
	t.Parallel()

	records := &memRecords{}
	in := service.NewInbound("s3cret", records)

	for i := 0; i < 2; i++ {
		if _, err := in.Ingest(context.Background(), []byte(textNotification)); err != nil {
			t.Fatalf("Ingest() #%d error: %v", i, err)
		}
	}
	if got := records.all(); len(got) != 2 {
		t.Fatalf("expected two records for a replay, got %d", len(got))
	}
}

func TestInbound_RejectsMalformedPayloads(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		body    string
		problem string
	}{
		{"not json", `{"entry":`, "decode:"},
		{"no entry", `{"object":"whatsapp_business_account"}`, "entry is missing or empty"},
		{"empty entry", `{"entry":[]}`, "entry is missing or empty"},
		{"no changes", `{"entry":[{"id":"1"}]}`, "entry[0].changes is missing or empty"},
		{"no messages", `{"entry":[{"changes":[{"value":{"metadata":{"display_phone_number":"1"}}}]}]}`, "entry[0].changes[0].value.messages is missing or empty"},
		{"status update", `{"entry":[{"changes":[{"value":{"statuses":[{"id":"wamid.1","status":"delivered"}]}}]}]}`, "messages is missing or empty"},
		{"no from", `{"entry":[{"changes":[{"value":{"messages":[{"timestamp":"1"}]}}]}]}`, "messages[0].from is missing"},
		{"bad timestamp", `{"entry":[{"changes":[{"value":{"messages":[{"from":"1","timestamp":"yesterday"}]}}]}]}`, "messages[0].timestamp"},
		{"negative timestamp", `{"entry":[{"changes":[{"value":{"messages":[{"from":"1","timestamp":"-1"}]}}]}]}`, "out of range"},
		{"zero time timestamp", `{"entry":[{"changes":[{"value":{"messages":[{"from":"1","timestamp":"-62135596800"}]}}]}]}`, "out of range"},
		{"year 10000 timestamp", `{"entry":[{"changes":[{"value":{"messages":[{"from":"1","timestamp":"253402300800"}]}}]}]}`, "out of range"},
		{"max int64 timestamp", `{"entry":[{"changes":[{"value":{"messages":[{"from":"1","timestamp":9223372036854775807}]}}]}]}`, "out of range"},
		{"overflowing timestamp", `{"entry":[{"changes":[{"value":{"messages":[{"from":"1","timestamp":"99999999999999999999"}]}}]}]}`, "messages[0].timestamp"},
		{"object timestamp", `{"entry":[{"changes":[{"value":{"messages":[{"from":"1","timestamp":{}}]}}]}]}`, "messages[0].timestamp"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			records := &memRecords{}
			in := service.NewInbound("s3cret", records)

			_, err := in.Ingest(context.Background(), []byte(tc.body))
			var verr *service.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T (%v)", err, err)
			}
			if !strings.Contains(verr.Error(), tc.problem) {
				t.Fatalf("expected problem %q in %q", tc.problem, verr.Error())
			}
			if got := records.all(); len(got) != 0 {
				t.Fatalf("expected no records, got %+v", got)
			}
		})
	}
}

func TestInbound_ReportsEveryMessageProblem(t *testing.T) {
	t.Parallel()

	_, err := service.ParseNotification([]byte(`{"entry":[{"changes":[{"value":{"messages":[{"timestamp":"soon"}]}}]}]}`))
	var verr *service.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(verr.Problems) != 2 {
		t.Fatalf("expected 2 problems, got %+v", verr.Problems)
	}
}

func TestParseNotification_Defaults(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
		want service.Notification
	}{
		{
			name: "numeric timestamp",
			body: `{"entry":[{"changes":[{"value":{"metadata":{"display_phone_number":"2"},"messages":[{"from":"1","timestamp":1700000000,"text":{"body":"yo"}}]}}]}]}`,
			want: service.Notification{From: "1", To: "2", Body: "yo", Timestamp: time.Unix(1700000000, 0).UTC()},
		},
		{
			name: "last representable second",
			body: `{"entry":[{"changes":[{"value":{"messages":[{"from":"1","timestamp":"253402300799"}]}}]}]}`,
			want: service.Notification{From: "1", Timestamp: time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)},
		},
		{
			name: "missing timestamp metadata and text",
			body: `{"entry":[{"changes":[{"value":{"messages":[{"from":"1","type":"image"}]}}]}]}`,
			want: service.Notification{From: "1", Timestamp: time.Unix(0, 0).UTC()},
		},
		{
			name: "empty string timestamp",
			body: `{"entry":[{"changes":[{"value":{"messages":[{"from":"1","timestamp":"","text":{"body":""}}]}}]}]}`,
			want: service.Notification{From: "1", Timestamp: time.Unix(0, 0).UTC()},
		},
		{
			name: "null timestamp",
			body: `{"entry":[{"changes":[{"value":{"messages":[{"from":"1","timestamp":null}]}}]}]}`,
			want: service.Notification{From: "1", Timestamp: time.Unix(0, 0).UTC()},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := service.ParseNotification([]byte(tc.body))
			if err != nil {
				t.Fatalf("ParseNotification() error: %v", err)
			}
			if got.From != tc.want.From || got.To != tc.want.To || got.Body != tc.want.Body || !got.Timestamp.Equal(tc.want.Timestamp) {
				t.Fatalf("expected %+v, got %+v", tc.want, *got)
			}
		})
	}
}

func TestInbound_StoreErrorIsWrapped(t *testing.T) {
	t.Parallel()

	in := service.NewInbound("s3cret", &memRecords{err: errors.New("disk full")})

	_, err := in.Ingest(context.Background(), []byte(textNotification))
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		t.Fatalf("store failure must not look like a validation error: %v", err)
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}
