// Package archive persists published occupancy grids to a local sqlite
// database so a run can be replayed or inspected after the fact. Archiving
// is optional; the node runs without it.
package archive

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
	"time"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/mapcomposer/internal/grid"
)

// schema.sql contains the SQL statements for creating the archive schema.
//
//go:embed schema.sql
var schemaSQL string

// GridArchive stores published occupancy grids.
type GridArchive struct {
	*sql.DB
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewGridArchive opens (creating if needed) the archive database at path.
func NewGridArchive(path string) (*GridArchive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, err
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, err
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, err
	}

	log.Println("initialized grid archive schema")

	return &GridArchive{DB: db, encoder: encoder, decoder: decoder}, nil
}

// RecordGrid stores one published grid.
func (a *GridArchive) RecordGrid(g *grid.OccupancyGrid) (int64, error) {
	raw := make([]byte, len(g.Data))
	for i, v := range g.Data {
		raw[i] = byte(v)
	}
	blob := a.encoder.EncodeAll(raw, nil)

	query := `
		INSERT INTO occupancy_grids (frame_id, stamp_ns, resolution, width, height, origin_x, origin_y, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := a.Exec(query,
		g.Header.FrameID,
		g.Header.Stamp.UnixNano(),
		g.Info.Resolution,
		g.Info.Width,
		g.Info.Height,
		g.Info.Origin.Position[0],
		g.Info.Origin.Position[1],
		blob,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert grid: %v", err)
	}

	return result.LastInsertId()
}

// GridRecord is one archived grid row, without its cell data.
type GridRecord struct {
	ID         int64   `json:"id"`
	FrameID    string  `json:"frame_id"`
	StampNs    int64   `json:"stamp_ns"`
	Resolution float64 `json:"resolution"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	OriginX    float64 `json:"origin_x"`
	OriginY    float64 `json:"origin_y"`
}

// RecentGrids returns the newest archived grids, newest first.
func (a *GridArchive) RecentGrids(limit int) ([]GridRecord, error) {
	query := `
		SELECT id, frame_id, stamp_ns, resolution, width, height, origin_x, origin_y
		FROM occupancy_grids
		ORDER BY stamp_ns DESC
		LIMIT ?
	`

	rows, err := a.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent grids: %v", err)
	}
	defer rows.Close()

	var records []GridRecord
	for rows.Next() {
		var r GridRecord
		if err := rows.Scan(&r.ID, &r.FrameID, &r.StampNs, &r.Resolution, &r.Width, &r.Height, &r.OriginX, &r.OriginY); err != nil {
			return nil, fmt.Errorf("failed to scan grid row: %v", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// LoadGrid reads one archived grid back in full.
func (a *GridArchive) LoadGrid(id int64) (*grid.OccupancyGrid, error) {
	query := `
		SELECT frame_id, stamp_ns, resolution, width, height, origin_x, origin_y, data
		FROM occupancy_grids
		WHERE id = ?
	`

	var (
		frameID          string
		stampNs          int64
		resolution       float64
		width, height    int
		originX, originY float64
		blob             []byte
	)
	err := a.QueryRow(query, id).Scan(&frameID, &stampNs, &resolution, &width, &height, &originX, &originY, &blob)
	if err != nil {
		return nil, fmt.Errorf("failed to load grid %d: %v", id, err)
	}

	raw, err := a.decoder.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress grid %d: %v", id, err)
	}
	if len(raw) != width*height {
		return nil, fmt.Errorf("grid %d has %d cells, want %d", id, len(raw), width*height)
	}

	data := make([]int8, len(raw))
	for i, b := range raw {
		data[i] = int8(b)
	}

	return &grid.OccupancyGrid{
		Header: grid.Header{Stamp: time.Unix(0, stampNs), FrameID: frameID},
		Info: grid.Info{
			MapLoadTime: time.Unix(0, stampNs),
			Resolution:  resolution,
			Width:       width,
			Height:      height,
			Origin: grid.Pose{
				Position:    [3]float64{originX, originY, 0},
				Orientation: [4]float64{0, 0, 0, 1},
			},
		},
		Data: data,
	}, nil
}

// Close releases the database and the compression codecs.
func (a *GridArchive) Close() error {
	a.encoder.Close()
	a.decoder.Close()
	return a.DB.Close()
}
