package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// FileHistory keeps published titles in a JSON file.
type FileHistory struct {
	filePath string
	items    map[string]PublishedItem
	mu       sync.RWMutex
	now      func() time.Time
}

// NewFileHistory creates a new file history instance
func NewFileHistory(filePath string) *FileHistory {
	return &FileHistory{
		filePath: filePath,
		items:    make(map[string]PublishedItem),
		now:      time.Now,
	}
}

// Load loads existing history from file
func (fh *FileHistory) Load(_ context.Context) ([]PublishedItem, error) {
	fh.mu.Lock()
	defer fh.mu.Unlock()

	data, err := os.ReadFile(fh.filePath)
	if errors.Is(err, os.ErrNotExist) {
		// File doesn't exist, start with empty history
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var items []PublishedItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history: %w", err)
	}

	for _, item := range items {
		if item.Hash == "" {
			item.Hash = TitleHash(item.Title)
		}
		fh.items[item.Hash] = item
	}
	return fh.sortedLocked(), nil
}

// Record adds a title and rewrites the file.
func (fh *FileHistory) Record(_ context.Context, title, link string) error {
	fh.mu.Lock()
	defer fh.mu.Unlock()

	hash := TitleHash(title)
	if _, ok := fh.items[hash]; ok {
		return nil
	}
	fh.items[hash] = PublishedItem{
		Hash:        hash,
		Title:       title,
		Link:        link,
		PublishedAt: fh.now(),
	}
	return fh.saveLocked()
}

func (fh *FileHistory) Close() error { return nil }

func (fh *FileHistory) saveLocked() error {
	data, err := json.MarshalIndent(fh.sortedLocked(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	if dir := filepath.Dir(fh.filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create history dir: %w", err)
		}
	}

	tmp := fh.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	if err := os.Rename(tmp, fh.filePath); err != nil {
		return fmt.Errorf("failed to replace history file: %w", err)
	}
	return nil
}

func (fh *FileHistory) sortedLocked() []PublishedItem {
	items := make([]PublishedItem, 0, len(fh.items))
	for _, item := range fh.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].PublishedAt.Equal(items[j].PublishedAt) {
			return items[i].Hash < items[j].Hash
		}
		return items[i].PublishedAt.Before(items[j].PublishedAt)
	})
	return items
}
