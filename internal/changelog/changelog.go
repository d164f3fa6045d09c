// Package changelog publishes change-log entries outside the catalog store.
package changelog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bartek5186/pimsync/internal/tracker"
	"github.com/segmentio/kafka-go"
)

type Writer interface {
	Append(ctx context.Context, e tracker.Entry) error
}

// MultiWriter rozsyła wpis do wszystkich writerów; pierwszy błąd przerywa.
type MultiWriter struct {
	writers []Writer
}

func NewMultiWriter(ws ...Writer) *MultiWriter {
	out := &MultiWriter{}
	for _, w := range ws {
		if w != nil {
			out.writers = append(out.writers, w)
		}
	}
	return out
}

func (m *MultiWriter) Len() int { return len(m.writers) }

func (m *MultiWriter) Append(ctx context.Context, e tracker.Entry) error {
	for _, w := range m.writers {
		if err := w.Append(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// Close zamyka writery, które to potrafią.
func (m *MultiWriter) Close() error {
	var errs []error
	for _, w := range m.writers {
		if c, ok := w.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// FileWriter – JSON lines, jeden wpis na linię
type FileWriter struct {
	mu   sync.Mutex
	path string
}

func NewFileWriter(path string) (*FileWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}
	return &FileWriter{path: path}, nil
}

func (w *FileWriter) Append(_ context.Context, e tracker.Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(&e); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// KafkaWriter publikuje wpisy na topic; klucz = SKU wiersza, więc zmiany produktu trafiają do jednej partycji.
type KafkaWriter struct {
	writer kafkaMessageWriter
}

type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewKafkaWriter – brokers jako lista host:port (wpisy mogą zawierać przecinki).
func NewKafkaWriter(brokers []string, topic string) *KafkaWriter {
	var addrs []string
	for _, b := range brokers {
		for _, a := range strings.Split(b, ",") {
			if a = strings.TrimSpace(a); a != "" {
				addrs = append(addrs, a)
			}
		}
	}
	return &KafkaWriter{writer: &kafka.Writer{
		Addr:         kafka.TCP(addrs...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}}
}

// tylko do testów
func newKafkaWriterWith(w kafkaMessageWriter) *KafkaWriter {
	return &KafkaWriter{writer: w}
}

func (k *KafkaWriter) Append(ctx context.Context, e tracker.Entry) error {
	b, err := json.Marshal(&e)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(e.SKU),
		Value: b,
		Headers: []kafka.Header{
			{Key: "change_type", Value: []byte(e.ChangeType)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: %w", err)
	}
	return nil
}

func (k *KafkaWriter) Close() error {
	if c, ok := k.writer.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
