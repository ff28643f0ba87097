package action

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cuemby/clusterscope/pkg/types"
)

const bytesPerGB = 1024 * 1024 * 1024

// ErrUnparsableReport means dfsadmin output did not contain capacity figures
var ErrUnparsableReport = errors.New("unparsable dfsadmin report")

// UsageReport is the parsed output of hdfs dfsadmin -report
type UsageReport struct {
	Usage types.HdfsUsage
	Nodes []types.NodeUsage
}

// HdfsUsage runs hdfs dfsadmin -report and parses aggregate and per DataNode
// usage
func (r *Runner) HdfsUsage(ctx context.Context, cluster *types.Cluster) (UsageReport, error) {
	res, err := r.executor.Execute(ctx, cluster, "hdfs dfsadmin -report")
	if err != nil {
		return UsageReport{}, fmt.Errorf("%w: dfsadmin report on cluster %s: %w", ErrInvalidResponse, cluster.Name, err)
	}
	return ParseUsageReport(res.Stdout)
}

// ParseUsageReport reads a dfsadmin report. Figures before the first "Name:"
// line describe the filesystem; every "Name:" line starts a DataNode section
// whose "Hostname:" line, when present, names the node.
func ParseUsageReport(out string) (UsageReport, error) {
	var (
		report   UsageReport
		node     *types.NodeUsage
		seenDFS  bool
		seenSize bool
	)

	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch key {
		case "Name":
			if node != nil {
				report.Nodes = append(report.Nodes, *node)
			}
			node = &types.NodeUsage{Node: nodeName(value)}
		case "Hostname":
			if node != nil && value != "" {
				node.Node = value
			}
		case "Configured Capacity":
			gb, err := parseGB(value)
			if err != nil {
				continue
			}
			if node != nil {
				node.TotalGB = gb
			} else {
				report.Usage.TotalGB = gb
				seenSize = true
			}
		case "DFS Used":
			gb, err := parseGB(value)
			if err != nil {
				continue
			}
			if node != nil {
				node.UsedGB = gb
			} else {
				report.Usage.UsedGB = gb
				seenDFS = true
			}
		}
	}
	if node != nil {
		report.Nodes = append(report.Nodes, *node)
	}

	if !seenDFS || !seenSize {
		return UsageReport{}, ErrUnparsableReport
	}
	return report, nil
}

// nodeName strips the port and the reverse lookup suffix from
// "10.0.0.1:50010 (node1)"
func nodeName(value string) string {
	if i := strings.Index(value, "("); i >= 0 {
		if j := strings.Index(value[i:], ")"); j > 1 {
			return value[i+1 : i+j]
		}
	}
	host, _, _ := strings.Cut(value, ":")
	return strings.TrimSpace(host)
}

// parseGB converts "123456 (120.56 KB)" to gigabytes
func parseGB(value string) (float64, error) {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return 0, ErrUnparsableReport
	}
	b, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, err
	}
	return float64(b) / bytesPerGB, nil
}
