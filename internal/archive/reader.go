package archive

import (
	"errors"
	"io"
	"os"

	"go.trai.ch/zerr"
	"pault.ag/go/debian/control"
)

type paragraph struct {
	control.Paragraph
}

// ReadTagFile decodes every paragraph of a Packages or Sources index into
// records of the given kind. Paragraphs without a Package field are skipped.
func ReadTagFile(in io.Reader, kind RecordKind) ([]Record, error) {
	decoder, err := control.NewDecoder(in, nil)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to create control decoder")
	}

	var records []Record
	for {
		next := paragraph{}
		err := decoder.Decode(&next)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to decode paragraph"), "records", len(records))
		}
		if next.Values["Package"] == "" {
			continue
		}
		fields := make(map[string]string, len(next.Values))
		for k, v := range next.Values {
			fields[k] = v
		}
		records = append(records, Record{Kind: kind, Fields: fields})
	}
	return records, nil
}

// LoadTagFiles reads each path in order and concatenates the records.
func LoadTagFiles(paths []string, kind RecordKind) ([]Record, error) {
	var records []Record
	for _, path := range paths {
		recs, err := loadTagFile(path, kind)
		if err != nil {
			return nil, err
		}
		records = append(records, recs...)
	}
	return records, nil
}

func loadTagFile(path string, kind RecordKind) ([]Record, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to open index"), "path", path)
	}
	defer fd.Close()

	recs, err := ReadTagFile(fd, kind)
	if err != nil {
		return nil, zerr.With(err, "path", path)
	}
	return recs, nil
}
