// Package stats содержит вспомогательные функции для отчётов сессии
// генерации: форматирование времени и потребление ресурсов процессом.
package stats

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"
)

// FormatElapsed форматирует длительность как "1m 2s 345ms"
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	minutes := int(d / time.Minute)
	seconds := int(d%time.Minute) / int(time.Second)
	millis := int(d%time.Second) / int(time.Millisecond)
	return fmt.Sprintf("%dm %ds %dms", minutes, seconds, millis)
}

// Stopwatch замеряет время одной операции
type Stopwatch struct {
	start time.Time
}

func StartStopwatch() Stopwatch {
	return Stopwatch{start: time.Now()}
}

func (s Stopwatch) Elapsed() time.Duration {
	return time.Since(s.start)
}

// String возвращает прошедшее время в формате FormatElapsed
func (s Stopwatch) String() string {
	return FormatElapsed(s.Elapsed())
}

// SessionMetrics собирает показатели процесса для итогового отчёта
type SessionMetrics struct {
	StartTime time.Time
}

// NewSessionMetrics создает метрики, отсчитывающие время от текущего момента
func NewSessionMetrics() *SessionMetrics {
	return &SessionMetrics{StartTime: time.Now()}
}

// Uptime возвращает время работы сессии
func (sm *SessionMetrics) Uptime() string {
	return FormatElapsed(time.Since(sm.StartTime))
}

// MemoryUsage возвращает резидентную память процесса в MB.
// Если gopsutil недоступен на платформе, используется runtime.MemStats.
func (sm *SessionMetrics) MemoryUsage() (float64, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err == nil {
		if info, err := proc.MemoryInfo(); err == nil {
			return float64(info.RSS) / 1024 / 1024, nil
		}
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return float64(m.Alloc) / 1024 / 1024, nil
}

// CPUUsage возвращает загрузку CPU процессом в процентах
func (sm *SessionMetrics) CPUUsage() (float64, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, err
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		// Если метрика процесса недоступна, берём системную
		cpuPercents, err := cpu.Percent(100*time.Millisecond, false)
		if err != nil || len(cpuPercents) == 0 {
			return 0, err
		}
		return cpuPercents[0], nil
	}
	return cpuPercent, nil
}

// Report собирает показатели в карту для лога
func (sm *SessionMetrics) Report() map[string]interface{} {
	report := map[string]interface{}{
		"uptime":     sm.Uptime(),
		"goroutines": runtime.NumGoroutine(),
	}
	if mb, err := sm.MemoryUsage(); err == nil {
		report["memory_mb"] = fmt.Sprintf("%.1f", mb)
	}
	if pct, err := sm.CPUUsage(); err == nil {
		report["cpu_percent"] = fmt.Sprintf("%.1f", pct)
	}
	return report
}
