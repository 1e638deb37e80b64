package booking

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"hospital-desk/internal/model"
)

// Directory remembers doctor profiles for a while so the selected doctor can
// be shown without another round trip. Safe for concurrent use.
type Directory struct {
	cache *expirable.LRU[int64, model.Doctor]
}

func NewDirectory(size int, ttl time.Duration) *Directory {
	if size < 1 {
		size = 256
	}
	return &Directory{cache: expirable.NewLRU[int64, model.Doctor](size, nil, ttl)}
}

func (d *Directory) Put(docs ...model.Doctor) {
	for _, doc := range docs {
		d.cache.Add(doc.ID, doc)
	}
}

func (d *Directory) Get(id int64) (model.Doctor, bool) {
	return d.cache.Get(id)
}

func (d *Directory) Len() int { return d.cache.Len() }
