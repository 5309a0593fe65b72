package docstore

import (
	"context"
	"errors"
)

// ErrNotFound возвращается, когда документ отсутствует в коллекции.
var ErrNotFound = errors.New("document not found")

// Op задаёт оператор условия выборки.
type Op string

const (
	// OpEq — равенство по строковому значению поля.
	OpEq Op = "eq"
	// OpLte — «меньше или равно» по числовому значению поля.
	OpLte Op = "lte"
	// OpContains — вхождение значения в JSON-массив поля.
	OpContains Op = "contains"
)

// Cond — одно условие фильтра по полю документа.
type Cond struct {
	Field string
	Op    Op
	Value any
}

// Query описывает выборку документов коллекции: условия равенства и
// диапазона, упорядочивание по одному полю и постраничный срез.
type Query struct {
	Conds   []Cond
	OrderBy string
	// Numeric указывает, что поле сортировки хранится числом.
	Numeric bool
	Desc    bool
	Limit   int
	Offset  int
}

// Document — сырой документ коллекции. Идентификатор хранится отдельно
// от содержимого и назначается хранилищем при создании.
type Document struct {
	ID   string
	Data []byte
}

// Store — обобщённое документное хранилище: точечное чтение по id,
// фильтры равенства, упорядоченные диапазонные выборки и атомарное
// пакетное удаление.
type Store interface {
	Find(ctx context.Context, collection string, q Query) ([]Document, error)
	Count(ctx context.Context, collection string, conds []Cond) (int, error)
	GetByID(ctx context.Context, collection, id string) (Document, error)
	Create(ctx context.Context, collection string, data []byte) (Document, error)
	Update(ctx context.Context, collection, id string, data []byte) error
	Delete(ctx context.Context, collection, id string) error
	BatchDelete(ctx context.Context, collection string, ids []string) error
}
