package remote

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"
)

// PackObjects packs objects into one layer body:
// [key length 2B][key][data length 8B][data]... in key order.
func PackObjects(objects map[string][]byte) ([]byte, error) {
	keys := make([]string, 0, len(objects))
	for k := range objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	for _, key := range keys {
		if len(key) == 0 || len(key) > math.MaxUint16 {
			return nil, fmt.Errorf("pack: invalid key length %d", len(key))
		}
		data := objects[key]
		binary.Write(&buf, binary.BigEndian, uint16(len(key)))
		buf.WriteString(key)
		binary.Write(&buf, binary.BigEndian, uint64(len(data)))
		buf.Write(data)
	}
	return buf.Bytes(), nil
}

func UnpackObjects(data []byte) (map[string][]byte, error) {
	result := make(map[string][]byte)
	r := bytes.NewReader(data)

	for r.Len() > 0 {
		var keyLen uint16
		if err := binary.Read(r, binary.BigEndian, &keyLen); err != nil {
			return nil, fmt.Errorf("read key length: %w", err)
		}
		key := make([]byte, keyLen)
		if _, err := io.ReadFull(r, key); err != nil {
			return nil, fmt.Errorf("read key: %w", err)
		}

		var length uint64
		if err := binary.Read(r, binary.BigEndian, &length); err != nil {
			return nil, fmt.Errorf("read length: %w", err)
		}
		if length > uint64(r.Len()) {
			return nil, fmt.Errorf("object %q: length %d exceeds layer", key, length)
		}
		obj := make([]byte, length)
		if _, err := io.ReadFull(r, obj); err != nil {
			return nil, fmt.Errorf("read data: %w", err)
		}

		result[string(key)] = obj
	}

	return result, nil
}
