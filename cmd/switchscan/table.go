package main

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"switchscan/internal/messenger"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range r {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render() + "\n"
}

func renderThreads(threads []messenger.ThreadInfo, now time.Time) string {
	rows := make([][]string, 0, len(threads))
	for _, th := range threads {
		last := "-"
		if th.LastTS > 0 {
			sec := int64(th.LastTS)
			nsec := int64((th.LastTS - float64(sec)) * float64(time.Second))
			last = humanize.RelTime(time.Unix(sec, nsec), now, "ago", "from now")
		}
		messages := humanize.Comma(int64(th.Messages))
		if th.Stub {
			messages = "not loaded"
		}
		unread := ""
		if th.Unread > 0 {
			unread = humanize.Comma(int64(th.Unread))
		}
		rows = append(rows, []string{th.Label, th.Kind, unread, messages, last})
	}
	return renderTable(
		[]string{"Thread", "Kind", "Unread", "Messages", "Last message"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	)
}
