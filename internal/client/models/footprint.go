package models

import "fmt"

// FormatSize renders a byte count as B, KB or MB.
func FormatSize(bytes int) string {
	switch {
	case bytes > 1024*1024:
		return fmt.Sprintf("%.2f MB", float64(bytes)/(1024*1024))
	case bytes > 1024:
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	}
	return fmt.Sprintf("%d B", bytes)
}
