package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

// SessionSubmission mirrors the session event consumed by the profile service
type SessionSubmission struct {
	EventID         string    `json:"event_id"`
	UserID          string    `json:"user_id"`
	Language        string    `json:"language"`
	DurationSeconds int64     `json:"duration_seconds"`
	OccurredAt      time.Time `json:"occurred_at"`
}

var userPrefixes = []string{
	"dev", "coder", "hacker", "builder", "maker", "ship", "byte", "stack",
	"async", "lambda", "vector", "kernel", "branch", "merge", "patch", "pixel",
	"query", "socket", "thread", "cache", "deploy", "script", "debug", "logic",
}

// Languages weighted roughly toward what a real population reports.
var languagePool = []string{
	"javascript", "javascript", "typescript", "typescript", "python", "python",
	"go", "go", "rust", "java", "csharp", "cpp", "html", "css", "sql",
	"ruby", "php", "kotlin", "swift", "markdown", "yaml", "other",
}

func getUserID(idx int) string {
	prefixIdx := idx % len(userPrefixes)
	suffix := idx/len(userPrefixes) + 1
	return fmt.Sprintf("%s%d", userPrefixes[prefixIdx], suffix)
}

func main() {
	// Command line flags
	brokers := flag.String("brokers", "localhost:9094", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "coding-sessions", "Kafka topic")
	totalUsers := flag.Int("users", 500, "Number of synthetic users")
	sessionsPerSecond := flag.Int("rate", 50, "Sessions per second")
	duration := flag.Duration("duration", 0, "Duration to run (0 = forever)")
	flag.Parse()

	brokerList := strings.Split(*brokers, ",")

	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println("  🚀 Coding Session Producer")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("  Brokers:       %s\n", *brokers)
	fmt.Printf("  Topic:         %s\n", *topic)
	fmt.Printf("  Users:         %d\n", *totalUsers)
	fmt.Printf("  Sessions/sec:  %d\n", *sessionsPerSecond)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	// Configure Sarama producer
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 100 * time.Millisecond
	config.Producer.Flush.Messages = 100
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	// Create producer
	producer, err := sarama.NewAsyncProducer(brokerList, config)
	if err != nil {
		log.Fatalf("Failed to create producer: %v", err)
	}
	defer producer.Close()

	// Handle producer errors and successes
	var successCount, errorCount int64
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for range producer.Successes() {
			atomic.AddInt64(&successCount, 1)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for err := range producer.Errors() {
			atomic.AddInt64(&errorCount, 1)
			log.Printf("Producer error: %v", err)
		}
	}()

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})

	// Send message helper
	sendSession := func(submission SessionSubmission) {
		data, err := json.Marshal(submission)
		if err != nil {
			log.Printf("Failed to marshal message: %v", err)
			return
		}

		msg := &sarama.ProducerMessage{
			Topic: *topic,
			Key:   sarama.StringEncoder(submission.UserID),
			Value: sarama.ByteEncoder(data),
		}

		select {
		case producer.Input() <- msg:
		case <-done:
			return
		}
	}

	fmt.Printf("Producing sessions (%d/sec)\n", *sessionsPerSecond)
	fmt.Println("Active users get most of the traffic (to create leaderboard movement)")
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	interval := time.Second / time.Duration(*sessionsPerSecond)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	statsTicker := time.NewTicker(5 * time.Second)
	defer statsTicker.Stop()

	var endTime time.Time
	if *duration > 0 {
		endTime = time.Now().Add(*duration)
	}

	var sessionCount int64

	shutdown := func(reason string) {
		fmt.Printf("\n\n%s\n", reason)
		close(done)
		producer.AsyncClose()
		wg.Wait()
		fmt.Printf("\n✓ Completed. Sent: %d, Errors: %d\n", atomic.LoadInt64(&successCount), atomic.LoadInt64(&errorCount))
	}

	for {
		select {
		case <-sigChan:
			shutdown("Shutting down...")
			return

		case <-ticker.C:
			if *duration > 0 && time.Now().After(endTime) {
				shutdown("Duration reached, shutting down...")
				return
			}

			// 70% of sessions come from the 20 most active users
			var userIdx int
			if rand.Intn(100) < 70 {
				userIdx = rand.Intn(20)
			} else {
				userIdx = rand.Intn(*totalUsers-20) + 20
			}

			// Session lengths between 5 minutes and 2 hours
			durationSeconds := int64(rand.Intn(7200-300) + 300)

			submission := SessionSubmission{
				EventID:         uuid.New().String(),
				UserID:          getUserID(userIdx),
				Language:        languagePool[rand.Intn(len(languagePool))],
				DurationSeconds: durationSeconds,
				OccurredAt:      time.Now().UTC(),
			}
			sendSession(submission)
			atomic.AddInt64(&sessionCount, 1)

		case <-statsTicker.C:
			sessions := atomic.LoadInt64(&sessionCount)
			success := atomic.LoadInt64(&successCount)
			errors := atomic.LoadInt64(&errorCount)
			fmt.Printf("[%s] Sessions: %d | Sent: %d | Errors: %d\n",
				time.Now().Format("15:04:05"),
				sessions,
				success,
				errors,
			)
		}
	}
}
