package simulator

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"reflect"
	"sort"
	"sync"

	"github.com/chrisdamba/coastersim/internal/cloudwriter"
	"github.com/chrisdamba/coastersim/internal/models"
	"github.com/chrisdamba/coastersim/internal/output"
	"github.com/chrisdamba/coastersim/internal/simulator/producers"
	log "github.com/sirupsen/logrus"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"
)

type OutputDestination interface {
	WriteMessage(topic string, msg []byte) error
	Close() error
}

type ConsoleOutput struct {
	mu sync.Mutex
	w  io.Writer
}

type JSONOutput struct {
	dir   string
	mu    sync.Mutex
	files map[string]*os.File
}

type CSVOutput struct {
	dir     string
	mu      sync.Mutex
	files   map[string]*os.File
	writers map[string]*csv.Writer
	headers map[string][]string
}

type ParquetOutput struct {
	dir                string
	objectPrefix       string
	mu                 sync.Mutex
	writers            map[string]*writer.ParquetWriter
	files              map[string]source.ParquetFile
	cloudWriterFactory cloudwriter.CloudWriterFactory
	cloudBucketName    string
}

type CloudParquetFile struct {
	cloudWriter cloudwriter.CloudWriter
	offset      int64
}

func NewConsoleOutput(w io.Writer) *ConsoleOutput {
	return &ConsoleOutput{w: w}
}

func NewJSONOutput(basePath, folder, runID string) *JSONOutput {
	return &JSONOutput{
		dir:   runDir(basePath, folder, runID),
		files: make(map[string]*os.File),
	}
}

func NewCSVOutput(basePath, folder, runID string) *CSVOutput {
	return &CSVOutput{
		dir:     runDir(basePath, folder, runID),
		files:   make(map[string]*os.File),
		writers: make(map[string]*csv.Writer),
		headers: make(map[string][]string),
	}
}

// NewParquetOutput writes one parquet file per topic, either under the local
// output path or, for the s3 provider, as objects in the configured bucket.
func NewParquetOutput(ctx context.Context, config *models.Config, runID string) (*ParquetOutput, error) {
	if config.CloudStorage.Provider != "s3" {
		return newParquetOutput(config, runID, nil), nil
	}

	factory, err := cloudwriter.NewS3WriterFactory(ctx, config.CloudStorage.Region)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloud writer factory: %w", err)
	}
	return newParquetOutput(config, runID, factory), nil
}

func newParquetOutput(config *models.Config, runID string, factory cloudwriter.CloudWriterFactory) *ParquetOutput {
	return &ParquetOutput{
		dir:                runDir(config.OutputPath, config.OutputFolder, runID),
		objectPrefix:       path.Join(config.OutputFolder, "run="+runID),
		writers:            make(map[string]*writer.ParquetWriter),
		files:              make(map[string]source.ParquetFile),
		cloudWriterFactory: factory,
		cloudBucketName:    config.CloudStorage.BucketName,
	}
}

func NewCloudParquetFile(cloudWriter cloudwriter.CloudWriter) *CloudParquetFile {
	return &CloudParquetFile{cloudWriter: cloudWriter}
}

func runDir(basePath, folder, runID string) string {
	return filepath.Join(basePath, folder, "run="+runID)
}

// decodeEvent parses a serialised event, keeping numbers in their original
// textual form.
func decodeEvent(msg []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(msg))
	dec.UseNumber()

	var event map[string]interface{}
	if err := dec.Decode(&event); err != nil {
		return nil, err
	}
	if _, ok := event["timestamp"].(json.Number); !ok {
		return nil, fmt.Errorf("invalid timestamp")
	}
	return event, nil
}

func (c *ConsoleOutput) WriteMessage(topic string, msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := fmt.Fprintf(c.w, "[%s] %s\n", topic, msg); err != nil {
		return fmt.Errorf("failed to write to console: %w", err)
	}
	return nil
}

func (c *ConsoleOutput) Close() error {
	return nil
}

func (j *JSONOutput) WriteMessage(topic string, msg []byte) error {
	event, err := decodeEvent(msg)
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	file, ok := j.files[topic]
	if !ok {
		fullPath := filepath.Join(j.dir, topic)
		if err := os.MkdirAll(fullPath, os.ModePerm); err != nil {
			return err
		}
		file, err = os.Create(filepath.Join(fullPath, "data.json"))
		if err != nil {
			return err
		}
		j.files[topic] = file
	}

	jsonData, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := file.Write(append(jsonData, '\n')); err != nil {
		return err
	}
	return nil
}

func (j *JSONOutput) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	var lastErr error
	for topic, file := range j.files {
		if err := file.Close(); err != nil {
			lastErr = err
			log.WithError(err).WithField("topic", topic).Error("Error closing JSON file")
		}
	}
	j.files = make(map[string]*os.File)
	return lastErr
}

func (c *CSVOutput) WriteMessage(topic string, msg []byte) error {
	event, err := decodeEvent(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	csvWriter, ok := c.writers[topic]
	if !ok {
		fullPath := filepath.Join(c.dir, topic)
		if err := os.MkdirAll(fullPath, os.ModePerm); err != nil {
			return err
		}
		file, err := os.Create(filepath.Join(fullPath, "data.csv"))
		if err != nil {
			return err
		}
		csvWriter = csv.NewWriter(file)
		c.files[topic] = file
		c.writers[topic] = csvWriter

		headers := c.getHeaders(event)
		if err := csvWriter.Write(headers); err != nil {
			return err
		}
		c.headers[topic] = headers
	}

	headers := c.headers[topic]
	row := make([]string, len(headers))
	for i, header := range headers {
		if value, ok := event[header]; ok {
			row[i] = fmt.Sprintf("%v", value)
		}
	}

	if err := csvWriter.Write(row); err != nil {
		return err
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

func (c *CSVOutput) getHeaders(event map[string]interface{}) []string {
	headers := make([]string, 0, len(event))
	for key := range event {
		headers = append(headers, key)
	}
	sort.Strings(headers)
	return headers
}

func (c *CSVOutput) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var lastErr error
	for topic, csvWriter := range c.writers {
		csvWriter.Flush()
		if err := csvWriter.Error(); err != nil {
			lastErr = err
		}
		if err := c.files[topic].Close(); err != nil {
			lastErr = err
		}
	}
	c.writers = make(map[string]*csv.Writer)
	c.files = make(map[string]*os.File)
	return lastErr
}

func (p *ParquetOutput) WriteMessage(topic string, msg []byte) error {
	record, err := newTopicRecord(topic)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(msg, record); err != nil {
		return fmt.Errorf("failed to decode %s event: %w", topic, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	pw, ok := p.writers[topic]
	if !ok {
		pw, err = p.createNewWriter(topic)
		if err != nil {
			return fmt.Errorf("failed to create new writer: %w", err)
		}
	}

	if err := pw.Write(reflect.ValueOf(record).Elem().Interface()); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}

func (p *ParquetOutput) createNewWriter(topic string) (*writer.ParquetWriter, error) {
	var fw source.ParquetFile
	if p.cloudWriterFactory != nil {
		objectPath := path.Join(p.objectPrefix, topic, "data.parquet")
		cloudWriter, err := p.cloudWriterFactory.NewWriter(p.cloudBucketName, objectPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create cloud file writer: %w", err)
		}
		fw = NewCloudParquetFile(cloudWriter)
	} else {
		fullPath := filepath.Join(p.dir, topic)
		if err := os.MkdirAll(fullPath, os.ModePerm); err != nil {
			return nil, err
		}
		var err error
		fw, err = local.NewLocalFileWriter(filepath.Join(fullPath, "data.parquet"))
		if err != nil {
			return nil, fmt.Errorf("failed to create local file writer: %w", err)
		}
	}

	schema, err := newTopicRecord(topic)
	if err != nil {
		fw.Close()
		return nil, err
	}
	pw, err := writer.NewParquetWriter(fw, schema, 4)
	if err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to create ParquetWriter: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	p.writers[topic] = pw
	p.files[topic] = fw
	return pw, nil
}

func (p *ParquetOutput) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var lastErr error
	for topic, pw := range p.writers {
		if err := pw.WriteStop(); err != nil {
			lastErr = err
			log.WithError(err).WithField("topic", topic).Error("Error closing parquet writer")
		}
		if err := p.files[topic].Close(); err != nil {
			lastErr = err
			log.WithError(err).WithField("topic", topic).Error("Error closing parquet file")
		}
	}
	p.writers = make(map[string]*writer.ParquetWriter)
	p.files = make(map[string]source.ParquetFile)
	return lastErr
}

// Open and Create return the receiver: the object is created when the
// cloud writer is closed.
func (c *CloudParquetFile) Open(name string) (source.ParquetFile, error) {
	return c, nil
}

func (c *CloudParquetFile) Create(name string) (source.ParquetFile, error) {
	return c, nil
}

func (c *CloudParquetFile) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		c.offset = offset
	case io.SeekCurrent:
		c.offset += offset
	case io.SeekEnd:
		return 0, fmt.Errorf("seek from end not supported for cloud storage")
	}
	return c.offset, nil
}

func (c *CloudParquetFile) Read(p []byte) (n int, err error) {
	return 0, fmt.Errorf("read not supported for cloud storage")
}

func (c *CloudParquetFile) Write(p []byte) (n int, err error) {
	n, err = c.cloudWriter.Write(p)
	c.offset += int64(n)
	return n, err
}

func (c *CloudParquetFile) Close() error {
	return c.cloudWriter.Close()
}

func (s *Simulator) determineOutputDestination(ctx context.Context) (OutputDestination, error) {
	if s.output != nil {
		return s.output, nil
	}

	switch s.Config.OutputDestination {
	case models.OutputKafka:
		producer, err := producers.NewSaramaProducer(s.Config)
		if err != nil {
			return nil, err
		}
		return producer, nil
	case models.OutputPostgres:
		out, err := output.NewPostgresOutput(ctx, &s.Config.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to create Postgres output: %w", err)
		}
		return out, nil
	case models.OutputParquet:
		out, err := NewParquetOutput(ctx, s.Config, s.RunID)
		if err != nil {
			return nil, fmt.Errorf("failed to create Parquet output: %w", err)
		}
		return out, nil
	case models.OutputJSON:
		return NewJSONOutput(s.Config.OutputPath, s.Config.OutputFolder, s.RunID), nil
	case models.OutputCSV:
		return NewCSVOutput(s.Config.OutputPath, s.Config.OutputFolder, s.RunID), nil
	case models.OutputConsole, "":
		return NewConsoleOutput(s.stdout), nil
	default:
		return nil, fmt.Errorf("unsupported output destination: %s", s.Config.OutputDestination)
	}
}
