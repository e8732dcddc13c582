//go:build dev

package main

// IsDebug wails dev 使用 -tags dev 构建
const IsDebug = true
