// Package object holds the value types shared by every storage backend
package object

import "time"

// Info describes one stored object
// Info 描述一个存储对象
type Info struct {
	Key     string    `json:"key"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

// Usage reports capacity of the volume behind a backend
// Usage 存储卷容量
type Usage struct {
	Path        string  `json:"path"`
	Total       uint64  `json:"total"`
	Free        uint64  `json:"free"`
	Used        uint64  `json:"used"`
	UsedPercent float64 `json:"usedPercent"`
}
