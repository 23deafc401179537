// Package snapshot persists guild-keyed collections of flat records.
//
// A snapshot is a JSON object mapping a guild id to the ordered list of that guild's records.
// Decoding never fails: a missing or unreadable snapshot yields an empty collection, since the
// in-memory state is authoritative once the process is running.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Collection is a guild-keyed set of ordered records.
type Collection[T any] map[string][]T

// Encode serializes a collection. Guilds with no records are kept so an emptied guild stays
// empty after a reload.
func Encode[T any](c Collection[T]) ([]byte, error) {
	if c == nil {
		c = Collection[T]{}
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// Decode deserializes a collection, returning an empty one for empty or corrupt input.
func Decode[T any](data []byte) (Collection[T], error) {
	c := Collection[T]{}
	if len(data) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return Collection[T]{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	for guildID, records := range c {
		if records == nil {
			c[guildID] = []T{}
		}
	}
	return c, nil
}

// Save encodes c and writes it to the store under name.
func Save[T any](store Store, name string, c Collection[T]) error {
	data, err := Encode(c)
	if err != nil {
		return err
	}
	if err := store.Write(name, data); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", name, err)
	}
	return nil
}

// Load reads and decodes the snapshot called name. Read and decode failures are logged and
// produce an empty collection.
func Load[T any](store Store, name string) Collection[T] {
	data, err := store.Read(name)
	if err != nil {
		if !errors.Is(err, ErrNotExist) {
			log.Warn().Err(err).Str("snapshot", name).Msg("failed to read snapshot, starting empty")
		}
		return Collection[T]{}
	}
	c, err := Decode[T](data)
	if err != nil {
		log.Warn().Err(err).Str("snapshot", name).Msg("corrupt snapshot, starting empty")
	}
	return c
}
