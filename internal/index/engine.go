// Package index implements secondary indexes over the hashes of a kv.Store.
// Postings live in the same Pebble database as the hashes and are kept
// up to date by a store hook, in the batch of every write.
package index

import (
	"sort"

	"github.com/chaisql/hashkv/internal/encoding"
	errs "github.com/chaisql/hashkv/internal/errors"
	"github.com/chaisql/hashkv/internal/kv"
	"github.com/chaisql/hashkv/internal/log"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/sirupsen/logrus"
)

// DefaultLimit is the number of documents returned by Search when no limit is set.
const DefaultLimit = 10

// Engine manages the indexes of a store.
type Engine struct {
	store  *kv.Store
	logger logrus.FieldLogger
}

// New creates an engine and registers it as a hook of the store.
// Indexes created by a previous engine on the same database are picked up.
func New(store *kv.Store, logger logrus.FieldLogger) *Engine {
	e := Engine{
		store:  store,
		logger: log.OrDiscard(logger),
	}
	store.AddHook(&e)
	return &e
}

func getDefinition(r pebble.Reader, name string) (*Definition, error) {
	v, closer, err := r.Get(definitionKey(name))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, errors.WithStack(errs.NotFoundError{Name: name})
		}
		return nil, errs.Unavailable(err)
	}
	defer closer.Close()

	return decodeDefinition(v)
}

func listDefinitions(r pebble.Reader) ([]*Definition, error) {
	var defs []*Definition

	prefix := definitionPrefix()
	it := r.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: encoding.Successor(prefix),
	})
	for it.First(); it.Valid(); it.Next() {
		d, err := decodeDefinition(it.Value())
		if err != nil {
			_ = it.Close()
			return nil, err
		}
		defs = append(defs, d)
	}

	return defs, errs.Unavailable(it.Close())
}

// HashChanged replaces the postings of the hash in every index covering it.
func (e *Engine) HashChanged(b *pebble.Batch, key string, old, new kv.Record) error {
	defs, err := listDefinitions(b)
	if err != nil {
		return err
	}

	for _, d := range defs {
		if !d.Covers(key) {
			continue
		}

		if len(old) > 0 {
			err = removeDocument(b, d, key, old)
			if err != nil {
				return err
			}
		}

		if new != nil {
			err = addDocument(b, d, key, new)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

func addDocument(b *pebble.Batch, d *Definition, id string, rec kv.Record) error {
	for _, k := range postings(d, id, rec) {
		if err := b.Set(k, nil, nil); err != nil {
			return err
		}
	}
	return b.Set(memberKey(d.Name, id), nil, nil)
}

func removeDocument(b *pebble.Batch, d *Definition, id string, rec kv.Record) error {
	for _, k := range postings(d, id, rec) {
		if err := b.Delete(k, nil); err != nil {
			return err
		}
	}
	return b.Delete(memberKey(d.Name, id), nil)
}

// Create the index and index every existing hash it covers.
// If an index with the same name exists, it returns an AlreadyExistsError.
func (e *Engine) Create(d *Definition) error {
	err := d.Validate()
	if err != nil {
		return err
	}

	var n int
	err = e.store.Update(func(b *pebble.Batch) error {
		_, err := getDefinition(b, d.Name)
		if err == nil {
			return errors.WithStack(errs.AlreadyExistsError{Name: d.Name})
		}
		if !errs.IsNotFoundError(err) {
			return err
		}

		v, err := encodeDefinition(d)
		if err != nil {
			return err
		}
		err = b.Set(definitionKey(d.Name), v, nil)
		if err != nil {
			return err
		}

		n, err = buildIndex(b, d)
		return err
	})
	if err != nil {
		return errors.Wrapf(err, "cannot create index %q", d.Name)
	}

	e.logger.WithFields(logrus.Fields{
		"index": d.Name,
		"docs":  n,
	}).Debug("index created")
	return nil
}

// buildIndex indexes the hashes covered by d and returns how many there are.
func buildIndex(b *pebble.Batch, d *Definition) (int, error) {
	prefixes := d.Prefixes
	if len(prefixes) == 0 {
		prefixes = []string{""}
	}

	seen := make(map[string]struct{})
	for _, p := range prefixes {
		err := kv.ForEachHash(b, p, func(key string, rec kv.Record) error {
			if _, ok := seen[key]; ok {
				return nil
			}
			seen[key] = struct{}{}

			return addDocument(b, d, key, rec)
		})
		if err != nil {
			return 0, errors.Wrap(err, "error while building the index")
		}
	}

	return len(seen), nil
}

func truncate(b *pebble.Batch, name string) error {
	prefix := memberPrefix(name)
	err := b.DeleteRange(prefix, encoding.Successor(prefix), nil)
	if err != nil {
		return err
	}

	prefix = postingIndexPrefix(name)
	return b.DeleteRange(prefix, encoding.Successor(prefix), nil)
}

// Drop the index and its postings. The hashes are left untouched.
// If the index doesn't exist, it returns a NotFoundError.
func (e *Engine) Drop(name string) error {
	err := e.store.Update(func(b *pebble.Batch) error {
		if _, err := getDefinition(b, name); err != nil {
			return err
		}

		if err := b.Delete(definitionKey(name), nil); err != nil {
			return err
		}
		return truncate(b, name)
	})
	return errors.Wrapf(err, "cannot drop index %q", name)
}

// ReIndex truncates and rebuilds the index from the hashes of the store.
func (e *Engine) ReIndex(name string) error {
	err := e.store.Update(func(b *pebble.Batch) error {
		d, err := getDefinition(b, name)
		if err != nil {
			return err
		}

		err = truncate(b, name)
		if err != nil {
			return err
		}

		_, err = buildIndex(b, d)
		return err
	})
	return errors.Wrapf(err, "cannot reindex %q", name)
}

// Definition returns the definition of the index.
// If the index doesn't exist, it returns a NotFoundError.
func (e *Engine) Definition(name string) (*Definition, error) {
	return getDefinition(e.store.DB(), name)
}

// Info describes an index.
type Info struct {
	Definition *Definition
	NumDocs    int
}

// Info returns the definition of the index and the number of indexed hashes.
// If the index doesn't exist, it returns a NotFoundError.
func (e *Engine) Info(name string) (*Info, error) {
	snap := e.store.DB().NewSnapshot()
	defer snap.Close()

	d, err := getDefinition(snap, name)
	if err != nil {
		return nil, err
	}

	set, err := All{}.eval(&evalContext{r: snap, def: d})
	if err != nil {
		return nil, err
	}

	return &Info{Definition: d, NumDocs: len(set)}, nil
}

// List returns the definitions of every index, sorted by name.
func (e *Engine) List() ([]*Definition, error) {
	defs, err := listDefinitions(e.store.DB())
	if err != nil {
		return nil, err
	}

	sort.Slice(defs, func(i, j int) bool {
		return defs[i].Name < defs[j].Name
	})
	return defs, nil
}

// SearchOptions control the page of documents returned by Search.
type SearchOptions struct {
	Offset int
	// Limit is the maximum number of documents to return.
	// Zero means DefaultLimit, a negative value means no limit.
	Limit int
	// NoContent returns the document ids without loading their fields.
	NoContent bool
}

// A Document is a hash matched by a search.
type Document struct {
	ID     string
	Fields kv.Record
}

// Result of a search.
type Result struct {
	// Total number of matching documents, regardless of the options.
	Total int
	// Docs sorted by id.
	Docs []Document
}

// IDs returns the id of every returned document.
func (r *Result) IDs() []string {
	ids := make([]string, len(r.Docs))
	for i, d := range r.Docs {
		ids[i] = d.ID
	}
	return ids
}

// Search evaluates expr against the index and loads the matching hashes.
// If the index doesn't exist, it returns a NotFoundError.
// Referencing a field that isn't in the schema, or with the wrong syntax
// for its type, returns an invalid argument error.
func (e *Engine) Search(name string, expr Expr, opts SearchOptions) (*Result, error) {
	snap := e.store.DB().NewSnapshot()
	defer snap.Close()

	d, err := getDefinition(snap, name)
	if err != nil {
		return nil, err
	}

	set, err := expr.eval(&evalContext{r: snap, def: d})
	if err != nil {
		return nil, errors.Wrapf(err, "cannot search %q", name)
	}

	ids := set.sorted()
	res := Result{Total: len(ids)}

	if opts.Offset > 0 {
		if opts.Offset >= len(ids) {
			ids = nil
		} else {
			ids = ids[opts.Offset:]
		}
	}
	limit := opts.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}

	res.Docs = make([]Document, 0, len(ids))
	for _, id := range ids {
		doc := Document{ID: id}
		if !opts.NoContent {
			doc.Fields, err = e.store.HGetAll(id)
			if err != nil {
				return nil, err
			}
		}
		res.Docs = append(res.Docs, doc)
	}

	e.logger.WithFields(logrus.Fields{
		"index": name,
		"query": expr.String(),
		"total": res.Total,
	}).Debug("search")

	return &res, nil
}

// SearchString parses q and runs Search.
func (e *Engine) SearchString(name, q string, opts SearchOptions) (*Result, error) {
	expr, err := Parse(q)
	if err != nil {
		return nil, errs.InvalidArgumentf("invalid query %q: %v", q, err)
	}
	return e.Search(name, expr, opts)
}
