package main

import (
	"broadcast-relay/observability"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
)

func main() {
	addr := flag.String("addr", "http://localhost:3000", "Base URL of the relay")
	timeout := flag.Duration("timeout", 5*time.Second, "HTTP timeout")
	flag.Parse()

	stats, err := fetchStats(*addr, *timeout)
	if err != nil {
		log.Fatal("Error while fetching stats: ", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.AppendBulk(rows(stats))
	table.Render()
}

func fetchStats(addr string, timeout time.Duration) (observability.MonitoringStats, error) {
	var stats observability.MonitoringStats
	httpClient := &http.Client{Timeout: timeout}
	resp, err := httpClient.Get(addr + "/stats")
	if err != nil {
		return stats, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return stats, fmt.Errorf("unexpected status %s", resp.Status)
	}
	err = json.NewDecoder(resp.Body).Decode(&stats)
	return stats, err
}

func rows(s observability.MonitoringStats) [][]string {
	u := func(v uint64) string { return strconv.FormatUint(v, 10) }
	return [][]string{
		{"Uptime", time.Since(s.StartedAt).Truncate(time.Second).String()},
		{"Active connections", strconv.Itoa(s.ActiveConnections)},
		{"Connections opened", u(s.ConnectionsOpened)},
		{"Connections closed", u(s.ConnectionsClosed)},
		{"Messages received", u(s.MessagesReceived)},
		{"Messages relayed", u(s.MessagesRelayed)},
		{"Messages dropped", u(s.MessagesDropped)},
		{"Deliveries", u(s.Deliveries)},
		{"Delivery failures", u(s.DeliveryFailures)},
		{"Worker restarts", u(s.WorkerRestarts)},
		{"Queue", fmt.Sprintf("%d/%d", s.QueueLength, s.QueueCapacity)},
		{"RSS", fmt.Sprintf("%d MB", s.RSSBytes/1024/1024)},
		{"CPU", fmt.Sprintf("%.1f%%", s.CPUPercent)},
		{"Heap alloc", fmt.Sprintf("%d MB", s.AllocMemMb)},
		{"GC cycles", strconv.FormatUint(uint64(s.NumGC), 10)},
		{"Goroutines", strconv.Itoa(s.Goroutines)},
	}
}
