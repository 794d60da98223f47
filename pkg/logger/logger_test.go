package logger_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/redis-watcher/pkg/logger"
)

const linePattern = `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d{3} \[\d{10}\] `

var _ = Describe("Logger", func() {
	var (
		buf *bytes.Buffer
		log *slog.Logger
	)

	lines := func() []string {
		return strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	}

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		log = logger.New(buf)
	})

	Describe("New", func() {
		It("should write one line per record", func() {
			log.Info("first")
			log.Info("second")
			Expect(lines()).To(HaveLen(2))
		})

		It("should render timestamp, zero correlation and message", func() {
			log.Info("Opening connection.")
			Expect(buf.String()).To(MatchRegexp(linePattern + `Opening connection\.\n$`))
			Expect(buf.String()).To(ContainSubstring("[0000000000] Opening connection."))
		})

		It("should ignore levels", func() {
			log.Debug("debug line")
			log.Error("error line")
			Expect(lines()).To(HaveLen(2))
			Expect(log.Enabled(context.Background(), slog.LevelDebug)).To(BeTrue())
		})

		It("should append extra attributes", func() {
			log.Info("hello", slog.String("endpoint", "localhost:6379"))
			Expect(buf.String()).To(HaveSuffix("hello endpoint=localhost:6379\n"))
		})

		It("should prefix attributes inside groups", func() {
			log.WithGroup("redis").Info("hello", slog.Int("db", 2))
			Expect(buf.String()).To(HaveSuffix("hello redis.db=2\n"))
		})
	})

	Describe("WithCorrelation", func() {
		It("should pad the id to ten digits", func() {
			logger.WithCorrelation(log, 42).Info("Executing script.")
			Expect(buf.String()).To(MatchRegexp(linePattern + `Executing script\.\n$`))
			Expect(buf.String()).To(ContainSubstring("[0000000042] Executing script."))
		})

		It("should keep ids wider than ten digits intact", func() {
			logger.WithCorrelation(log, 12345678901).Info("wide")
			Expect(buf.String()).To(ContainSubstring("[12345678901] wide"))
		})

		It("should not leak the id into sibling loggers", func() {
			logger.WithCorrelation(log, 7).Info("tagged")
			log.Info("untagged")
			Expect(lines()[0]).To(ContainSubstring("[0000000007] tagged"))
			Expect(lines()[1]).To(ContainSubstring("[0000000000] untagged"))
		})

		It("should accept the id as a record attribute", func() {
			log.Info("inline", slog.Int64(logger.CorrelationKey, 3))
			Expect(buf.String()).To(ContainSubstring("[0000000003] inline\n"))
		})
	})

	It("should not interleave concurrent writes", func() {
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				logger.WithCorrelation(log, id).Info("concurrent")
			}(int64(i))
		}
		wg.Wait()

		Expect(lines()).To(HaveLen(50))
		for _, line := range lines() {
			Expect(line).To(MatchRegexp(linePattern + `concurrent$`))
		}
	})
})
