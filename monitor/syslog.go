package monitor

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"sort"
	"strings"
	"time"
)

const syslogAppName = "headline-monitor"

// SyslogNotifier ships each notification as one RFC 5424 line over TCP so the
// log pipeline keeps a copy next to the chat delivery.
type SyslogNotifier struct {
	addr    string
	service string
	dialer  net.Dialer
	now     func() time.Time
}

func NewSyslogNotifier(addr, service string) *SyslogNotifier {
	if strings.TrimSpace(service) == "" {
		service = "headlines"
	}
	return &SyslogNotifier{addr: addr, service: service, now: time.Now}
}

func (s *SyslogNotifier) Notify(ctx context.Context, rec HeadlineRecord) error {
	sd := buildStructuredData("hm", map[string]string{
		"service":     s.service,
		"category":    rec.Category,
		"fingerprint": string(rec.Fingerprint),
		"source_date": rec.SourceDate,
		"degraded":    boolLabel(rec.TimestampDegraded),
	})
	msg := rec.RawText
	if rec.RawTimestamp != "" {
		msg = rec.RawTimestamp + " " + msg
	}
	return s.send(ctx, sd, msg)
}

func (s *SyslogNotifier) Announce(ctx context.Context, text string) error {
	sd := buildStructuredData("hm", map[string]string{"service": s.service, "announce": "true"})
	return s.send(ctx, sd, text)
}

func (s *SyslogNotifier) send(ctx context.Context, structuredData, message string) error {
	conn, err := s.dialer.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("syslog dial %s: %w", s.addr, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	host, _ := os.Hostname()
	pri := 134 // local0.info
	ts := s.now().UTC().Format(time.RFC3339Nano)
	line := fmt.Sprintf("<%d>1 %s %s %s - - %s %s\n",
		pri, ts, sanitizeSyslogToken(host), syslogAppName, structuredData, oneLine(message))

	w := bufio.NewWriter(conn)
	if _, err := w.WriteString(line); err != nil {
		return fmt.Errorf("syslog write: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("syslog write: %w", err)
	}
	return nil
}

func buildStructuredData(sdID string, kv map[string]string) string {
	if sdID == "" {
		sdID = "hm"
	}
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(sdID)
	preferredOrder := []string{"service", "category", "fingerprint", "source_date", "degraded"}
	seen := make(map[string]struct{}, len(kv))
	writeParam := func(k, v string) {
		b.WriteString(" ")
		b.WriteString(k)
		b.WriteString("=\"")
		b.WriteString(escapeSDParam(v))
		b.WriteString("\"")
	}
	for _, k := range preferredOrder {
		v, ok := kv[k]
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		seen[k] = struct{}{}
		writeParam(k, v)
	}
	extra := make([]string, 0, len(kv))
	for k, v := range kv {
		if _, ok := seen[k]; ok || strings.TrimSpace(v) == "" {
			continue
		}
		extra = append(extra, k)
	}
	sort.Strings(extra)
	for _, k := range extra {
		writeParam(k, kv[k])
	}
	b.WriteString("]")
	return b.String()
}

func escapeSDParam(v string) string {
	v = strings.ReplaceAll(v, "\\", "\\\\")
	v = strings.ReplaceAll(v, "\"", "\\\"")
	v = strings.ReplaceAll(v, "]", "\\]")
	return oneLine(v)
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}

func sanitizeSyslogToken(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "-"
	}
	return strings.ReplaceAll(s, " ", "_")
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return ""
}
