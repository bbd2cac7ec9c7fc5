package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/domain"
)

const (
	TextFileName = "best_schedule.txt"
	CSVFileName  = "best_schedule.csv"
)

// WriteText 输出与原有文本报告兼容的格式，每行为 "ACTIVITY: room @ time with facilitator"
func WriteText(w io.Writer, entries []domain.ScheduleEntry) error {
	bw := bufio.NewWriter(w)

	if _, err := fmt.Fprint(bw, "Best Schedule:\n\n"); err != nil {
		return err
	}
	for _, entry := range entries {
		if _, err := fmt.Fprintf(bw, "%s: %s\n", entry.Activity, entry); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func WriteCSV(w io.Writer, entries []domain.ScheduleEntry) error {
	return gocsv.Marshal(entries, w)
}

// WriteFiles 在 dir 下写入文本与 CSV 两份报告，返回写入的文件路径
func WriteFiles(dir string, entries []domain.ScheduleEntry) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	writers := []struct {
		name  string
		write func(io.Writer, []domain.ScheduleEntry) error
	}{
		{TextFileName, WriteText},
		{CSVFileName, WriteCSV},
	}

	paths := make([]string, 0, len(writers))
	for _, w := range writers {
		path := filepath.Join(dir, w.name)
		if err := writeFile(path, entries, w.write); err != nil {
			return paths, fmt.Errorf("写入 %s 失败: %w", path, err)
		}
		paths = append(paths, path)
	}

	return paths, nil
}

// RunDir 为某一次运行的报告目录
func RunDir(base string, runID int64) string {
	return filepath.Join(base, fmt.Sprintf("run_%d", runID))
}

func writeFile(path string, entries []domain.ScheduleEntry, write func(io.Writer, []domain.ScheduleEntry) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := write(f, entries); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}
