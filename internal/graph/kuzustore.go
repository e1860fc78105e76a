//go:build cgo

package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuStore implements Store on an embedded KuzuDB database. The driver
// wraps KuzuDB's C library, so the file only builds with cgo.
//
// Chunks, files and clusters live in their own node tables. Edge endpoints
// are heterogeneous (paths, chunk IDs, module IDs, class names), so every
// edge goes through a generic Ref node table and a single LINK relation
// carrying the edge kind.
type KuzuStore struct {
	db   *kuzu.Database
	conn *kuzu.Connection
}

var _ Store = (*KuzuStore)(nil)

// NewKuzuStore opens an in-memory database.
func NewKuzuStore() (*KuzuStore, error) {
	return openKuzu(":memory:")
}

// NewKuzuFileStore opens (or creates) an on-disk database at dbPath so a
// graph index survives across runs.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	return openKuzu(dbPath)
}

func openKuzu(dbPath string) (*KuzuStore, error) {
	db, err := kuzu.OpenDatabase(dbPath, kuzu.DefaultSystemConfig())
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database %s: %w", dbPath, err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// Close releases the connection and the database.
func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// Node tables must be created before the relation that references them.
var kuzuDDL = []string{
	`CREATE NODE TABLE IF NOT EXISTS File(
		path STRING,
		language STRING,
		loc INT64,
		module STRING,
		PRIMARY KEY(path)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Chunk(
		id STRING,
		file_path STRING,
		language STRING,
		kind STRING,
		name STRING,
		parent_name STRING,
		start_line INT64,
		end_line INT64,
		content STRING,
		docstring STRING,
		metadata STRING,
		PRIMARY KEY(id)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Cluster(
		name STRING,
		cohesion_score DOUBLE,
		members STRING,
		PRIMARY KEY(name)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Ref(id STRING, PRIMARY KEY(id))`,
	`CREATE REL TABLE IF NOT EXISTS LINK(FROM Ref TO Ref, kind STRING)`,
}

// InitSchema creates the tables if they do not exist yet.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	for _, stmt := range kuzuDDL {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// AddFile upserts a File node.
func (s *KuzuStore) AddFile(_ context.Context, node FileNode) error {
	return s.exec(
		`MERGE (f:File {path: $path})
		 SET f.language = $lang, f.loc = $loc, f.module = $module`,
		map[string]any{
			"path":   node.Path,
			"lang":   string(node.Language),
			"loc":    int64(node.LOC),
			"module": node.Module,
		},
	)
}

// AddChunk upserts a Chunk node. Metadata is stored as JSON text.
func (s *KuzuStore) AddChunk(_ context.Context, c Chunk) error {
	meta, err := json.Marshal(c.Metadata)
	if err != nil {
		return fmt.Errorf("kuzu: encode chunk metadata: %w", err)
	}
	return s.exec(
		`MERGE (c:Chunk {id: $id})
		 SET c.file_path = $fp, c.language = $lang, c.kind = $kind,
		     c.name = $name, c.parent_name = $parent,
		     c.start_line = $sl, c.end_line = $el,
		     c.content = $content, c.docstring = $doc, c.metadata = $meta`,
		map[string]any{
			"id":      c.ID,
			"fp":      c.FilePath,
			"lang":    string(c.Language),
			"kind":    string(c.Kind),
			"name":    c.Name,
			"parent":  c.ParentName,
			"sl":      int64(c.StartLine),
			"el":      int64(c.EndLine),
			"content": c.Content,
			"doc":     c.Docstring,
			"meta":    string(meta),
		},
	)
}

// AddCluster upserts a Cluster node with its member list.
func (s *KuzuStore) AddCluster(_ context.Context, node ClusterNode) error {
	members, err := json.Marshal(node.Members)
	if err != nil {
		return fmt.Errorf("kuzu: encode cluster members: %w", err)
	}
	return s.exec(
		`MERGE (c:Cluster {name: $name})
		 SET c.cohesion_score = $score, c.members = $members`,
		map[string]any{
			"name":    node.Name,
			"score":   node.CohesionScore,
			"members": string(members),
		},
	)
}

// AddEdge links two Ref nodes, creating them as needed. Adding the same
// edge twice is a no-op.
func (s *KuzuStore) AddEdge(_ context.Context, edge Edge) error {
	return s.exec(
		`MERGE (a:Ref {id: $src})
		 MERGE (b:Ref {id: $dst})
		 MERGE (a)-[:LINK {kind: $kind}]->(b)`,
		map[string]any{
			"src":  edge.SourceID,
			"dst":  edge.TargetID,
			"kind": string(edge.Kind),
		},
	)
}

func (s *KuzuStore) GetFile(_ context.Context, path string) (*FileNode, error) {
	rows, err := s.query(
		"MATCH (f:File {path: $path}) RETURN f.path, f.language, f.loc, f.module",
		map[string]any{"path": path},
	)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	r := rows[0]
	return &FileNode{
		Path:     toString(r[0]),
		Language: Language(toString(r[1])),
		LOC:      toInt(r[2]),
		Module:   toString(r[3]),
	}, nil
}

const chunkColumns = `c.id, c.file_path, c.language, c.kind, c.name, c.parent_name,
	c.start_line, c.end_line, c.content, c.docstring, c.metadata`

func (s *KuzuStore) GetChunk(_ context.Context, id string) (*Chunk, error) {
	rows, err := s.query(
		"MATCH (c:Chunk {id: $id}) RETURN "+chunkColumns,
		map[string]any{"id": id},
	)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	c, err := rowToChunk(rows[0])
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// QueryChunks returns matches ordered by file path and start line.
func (s *KuzuStore) QueryChunks(_ context.Context, query string, kind ChunkKind, limit int) ([]Chunk, error) {
	cypher := `MATCH (c:Chunk)
		WHERE lower(c.name) CONTAINS lower($q) AND ($kind = '' OR c.kind = $kind)
		RETURN ` + chunkColumns + `
		ORDER BY c.file_path, c.start_line`
	params := map[string]any{"q": query, "kind": string(kind)}
	if limit > 0 {
		cypher += " LIMIT $lim"
		params["lim"] = int64(limit)
	}
	rows, err := s.query(cypher, params)
	if err != nil {
		return nil, err
	}
	out := make([]Chunk, 0, len(rows))
	for _, r := range rows {
		c, err := rowToChunk(r)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// GetDependencies walks LINK edges breadth-first, one query per hop.
func (s *KuzuStore) GetDependencies(_ context.Context, nodeID string, kind EdgeKind, dir Direction, maxDepth int) ([]DependencyChain, error) {
	var cypher string
	switch dir {
	case DirectionDownstream:
		cypher = `MATCH (a:Ref {id: $id})-[r:LINK]->(b:Ref)
			WHERE $kind = '' OR r.kind = $kind RETURN b.id ORDER BY b.id`
	case DirectionUpstream:
		cypher = `MATCH (b:Ref)-[r:LINK]->(a:Ref {id: $id})
			WHERE $kind = '' OR r.kind = $kind RETURN b.id ORDER BY b.id`
	default:
		return nil, fmt.Errorf("kuzu: unknown direction %q", dir)
	}
	return bfsChains(nodeID, maxDepth, func(id string) ([]string, error) {
		rows, err := s.query(cypher, map[string]any{"id": id, "kind": string(kind)})
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(rows))
		for _, r := range rows {
			out = append(out, toString(r[0]))
		}
		return out, nil
	})
}

// GetClusters returns clusters sorted by name.
func (s *KuzuStore) GetClusters(_ context.Context) ([]ClusterNode, error) {
	rows, err := s.query(
		"MATCH (c:Cluster) RETURN c.name, c.cohesion_score, c.members ORDER BY c.name",
		nil,
	)
	if err != nil {
		return nil, err
	}
	out := make([]ClusterNode, 0, len(rows))
	for _, r := range rows {
		cn := ClusterNode{Name: toString(r[0]), CohesionScore: toFloat64(r[1])}
		if raw := toString(r[2]); raw != "" {
			if err := json.Unmarshal([]byte(raw), &cn.Members); err != nil {
				return nil, fmt.Errorf("kuzu: decode members of %s: %w", cn.Name, err)
			}
		}
		out = append(out, cn)
	}
	return out, nil
}

func (s *KuzuStore) GetAllEdges(_ context.Context) ([]Edge, error) {
	rows, err := s.query(
		"MATCH (a:Ref)-[r:LINK]->(b:Ref) RETURN a.id, b.id, r.kind ORDER BY r.kind, a.id, b.id",
		nil,
	)
	if err != nil {
		return nil, err
	}
	edges := make([]Edge, 0, len(rows))
	for _, r := range rows {
		edges = append(edges, Edge{
			SourceID: toString(r[0]),
			TargetID: toString(r[1]),
			Kind:     EdgeKind(toString(r[2])),
		})
	}
	return edges, nil
}

func (s *KuzuStore) Stats(_ context.Context) (*GraphStats, error) {
	var st GraphStats
	counts := []struct {
		cypher string
		dst    *int
	}{
		{"MATCH (n:File) RETURN count(n)", &st.FileCount},
		{"MATCH (n:Chunk) RETURN count(n)", &st.ChunkCount},
		{"MATCH (n:Cluster) RETURN count(n)", &st.ClusterCount},
		{"MATCH ()-[r:LINK]->() RETURN count(r)", &st.EdgeCount},
	}
	for _, c := range counts {
		rows, err := s.query(c.cypher, nil)
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 && len(rows[0]) > 0 {
			*c.dst = toInt(rows[0][0])
		}
	}
	return &st, nil
}

// exec runs a parameterized statement and discards its result.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a statement and collects every row as a column-ordered slice.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var (
		res *kuzu.QueryResult
		err error
	)
	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

// rowToChunk decodes a row selected with chunkColumns.
func rowToChunk(r []any) (Chunk, error) {
	c := Chunk{
		ID:         toString(r[0]),
		FilePath:   toString(r[1]),
		Language:   Language(toString(r[2])),
		Kind:       ChunkKind(toString(r[3])),
		Name:       toString(r[4]),
		ParentName: toString(r[5]),
		StartLine:  toInt(r[6]),
		EndLine:    toInt(r[7]),
		Content:    toString(r[8]),
		Docstring:  toString(r[9]),
	}
	if raw := toString(r[10]); raw != "" {
		if err := json.Unmarshal([]byte(raw), &c.Metadata); err != nil {
			return Chunk{}, fmt.Errorf("kuzu: decode metadata of chunk %s: %w", c.ID, err)
		}
	}
	return c, nil
}

// KuzuDB hands back typed values; these coerce them without panicking.

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int32:
		return int(n)
	case int:
		return n
	case uint64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}
