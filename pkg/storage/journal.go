package storage

import (
	"bufio"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
	"math"
	"os"
	"sync"
	"time"

	"riskcore/pkg/common"
)

// Append-only audit journal for prediction records. Every predict served is
// framed and flushed here before the async sqlite persist, so a crash never
// loses an audited prediction.
//
// Frame: [CRC32 4B] [Timestamp 8B] [Seq 8B] [PayloadSize 4B] [Payload NB]
// Payload: [Label 1B] [Probability 8B] [Features 8 x 8B]

const (
	journalHeaderSize = 4 + 8 + 8 + 4 // 24 Bytes
)

type Journal struct {
	file *os.File
	mu   sync.Mutex
	buf  *bufio.Writer
}

func OpenJournal(path string) (*Journal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	return &Journal{
		file: f,
		buf:  bufio.NewWriter(f),
	}, nil
}

func (j *Journal) Append(rec common.PredictionRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	payload := encodePayload(rec)

	header := make([]byte, journalHeaderSize)
	binary.LittleEndian.PutUint64(header[4:12], uint64(rec.Timestamp.UnixNano()))
	binary.LittleEndian.PutUint64(header[12:20], rec.Seq)
	binary.LittleEndian.PutUint32(header[20:24], uint32(len(payload)))

	checksum := crc32.NewIEEE()
	checksum.Write(header[12:])
	checksum.Write(payload)
	binary.LittleEndian.PutUint32(header[0:4], checksum.Sum32())

	if _, err := j.buf.Write(header); err != nil {
		return err
	}
	if _, err := j.buf.Write(payload); err != nil {
		return err
	}

	return j.buf.Flush()
}

func (j *Journal) Sync() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.buf.Flush()
	return j.file.Sync()
}

func (j *Journal) Close() error {
	j.buf.Flush()
	return j.file.Close()
}

func (j *Journal) Truncate() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.buf.Flush(); err != nil {
		return err
	}
	path := j.file.Name()
	if err := j.file.Close(); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	j.file = f
	j.buf = bufio.NewWriter(f)
	return j.file.Sync()
}

func (j *Journal) Size() (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.buf.Flush(); err != nil {
		return 0, err
	}
	st, err := j.file.Stat()
	if err != nil {
		return 0, err
	}
	return st.Size(), nil
}

type JournalIterator struct {
	reader *bufio.Reader
	file   *os.File
}

func (j *Journal) NewIterator() (*JournalIterator, error) {
	f, err := os.Open(j.file.Name())
	if err != nil {
		return nil, err
	}
	return &JournalIterator{
		file:   f,
		reader: bufio.NewReader(f),
	}, nil
}

func (it *JournalIterator) Next() (common.PredictionRecord, error) {
	header := make([]byte, journalHeaderSize)
	if _, err := io.ReadFull(it.reader, header); err != nil {
		return common.PredictionRecord{}, err
	}

	storedCRC := binary.LittleEndian.Uint32(header[0:4])
	ts := int64(binary.LittleEndian.Uint64(header[4:12]))
	seq := binary.LittleEndian.Uint64(header[12:20])
	payloadSize := binary.LittleEndian.Uint32(header[20:24])

	payload := make([]byte, payloadSize)
	if _, err := io.ReadFull(it.reader, payload); err != nil {
		return common.PredictionRecord{}, errors.New("journal: corrupted payload")
	}

	checksum := crc32.NewIEEE()
	checksum.Write(header[12:])
	checksum.Write(payload)
	if checksum.Sum32() != storedCRC {
		return common.PredictionRecord{}, errors.New("journal: crc mismatch")
	}

	rec, err := decodePayload(payload)
	if err != nil {
		return common.PredictionRecord{}, err
	}
	rec.Seq = seq
	rec.Timestamp = time.Unix(0, ts)
	return rec, nil
}

func (it *JournalIterator) Close() {
	it.file.Close()
}

func encodePayload(rec common.PredictionRecord) []byte {
	payload := make([]byte, 1+8+8*len(rec.Features))
	payload[0] = byte(rec.Label)
	binary.LittleEndian.PutUint64(payload[1:9], math.Float64bits(rec.Probability))
	for i, v := range rec.Features {
		binary.LittleEndian.PutUint64(payload[9+8*i:], math.Float64bits(v))
	}
	return payload
}

func decodePayload(payload []byte) (common.PredictionRecord, error) {
	if len(payload) < 9 || (len(payload)-9)%8 != 0 {
		return common.PredictionRecord{}, errors.New("journal: malformed payload")
	}
	rec := common.PredictionRecord{
		Label:       common.RiskLabel(payload[0]),
		Probability: math.Float64frombits(binary.LittleEndian.Uint64(payload[1:9])),
	}
	n := (len(payload) - 9) / 8
	rec.Features = make(common.FeatureVector, n)
	for i := 0; i < n; i++ {
		rec.Features[i] = math.Float64frombits(binary.LittleEndian.Uint64(payload[9+8*i:]))
	}
	return rec, nil
}
