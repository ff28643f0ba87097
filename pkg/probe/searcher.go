package probe

import (
	"context"
	"fmt"
	"strings"

	"github.com/cuemby/clusterscope/pkg/remote"
	"github.com/cuemby/clusterscope/pkg/types"
	"github.com/kballard/go-shellquote"
)

// Log directories probed per service, in order of preference
var (
	ClouderaLogDirs = map[types.ServiceType][]string{
		types.ServiceYARN:      {"/var/log/hadoop-yarn"},
		types.ServiceHDFS:      {"/var/log/hadoop-hdfs"},
		types.ServiceHive:      {"/var/log/hive"},
		types.ServiceHBase:     {"/var/log/hbase"},
		types.ServiceZooKeeper: {"/var/log/zookeeper"},
		types.ServiceOozie:     {"/var/log/oozie"},
		types.ServiceSpark:     {"/var/log/spark"},
		types.ServiceImpala:    {"/var/log/impalad", "/var/log/impala"},
		types.ServiceHue:       {"/var/log/hue"},
		types.ServiceKafka:     {"/var/log/kafka"},
	}

	HortonworksLogDirs = map[types.ServiceType][]string{
		types.ServiceYARN:      {"/var/log/hadoop-yarn/yarn", "/var/log/hadoop/yarn"},
		types.ServiceHDFS:      {"/var/log/hadoop/hdfs"},
		types.ServiceHive:      {"/var/log/hive"},
		types.ServiceHBase:     {"/var/log/hbase"},
		types.ServiceZooKeeper: {"/var/log/zookeeper"},
		types.ServiceOozie:     {"/var/log/oozie"},
		types.ServiceSpark:     {"/var/log/spark2", "/var/log/spark"},
		types.ServiceKafka:     {"/var/log/kafka"},
	}
)

// Roots searched for job jars
var (
	ClouderaJarRoots    = []string{"/opt/cloudera/parcels/CDH/lib/hadoop-mapreduce", "/usr/lib/hadoop-mapreduce"}
	HortonworksJarRoots = []string{"/usr/hdp/current/hadoop-mapreduce-client"}
)

// CommandLogSearcher finds log directories by probing candidate paths over
// the remote executor
type CommandLogSearcher struct {
	executor remote.Executor
	dirs     map[types.ServiceType][]string
}

// NewLogSearcher creates a log searcher over the given candidate table
func NewLogSearcher(executor remote.Executor, dirs map[types.ServiceType][]string) *CommandLogSearcher {
	return &CommandLogSearcher{executor: executor, dirs: dirs}
}

// LogDirectory returns the first candidate directory present on the
// cluster, or an empty string when none exists
func (s *CommandLogSearcher) LogDirectory(ctx context.Context, cluster *types.Cluster, service types.ServiceType) (string, error) {
	candidates := s.dirs[service]
	if len(candidates) == 0 {
		return "", nil
	}

	cmd := fmt.Sprintf("ls -d %s 2>/dev/null | head -n 1", shellquote.Join(candidates...))
	res, err := s.executor.Execute(ctx, cluster, cmd)
	if err != nil {
		return "", fmt.Errorf("failed to search %s log directory: %w", service, err)
	}
	return firstLine(res.Stdout), nil
}

// CommandJarSearcher finds jars with find(1) under a fixed set of roots
type CommandJarSearcher struct {
	executor remote.Executor
	roots    []string
}

// NewJarSearcher creates a jar searcher over the given roots
func NewJarSearcher(executor remote.Executor, roots []string) *CommandJarSearcher {
	return &CommandJarSearcher{executor: executor, roots: roots}
}

// FindJar returns the first jar whose name starts with mask, skipping
// source and test jars
func (s *CommandJarSearcher) FindJar(ctx context.Context, cluster *types.Cluster, mask string) (string, error) {
	if len(s.roots) == 0 {
		return "", nil
	}

	cmd := fmt.Sprintf("find %s -name %s ! -name '*sources*' ! -name '*test*' 2>/dev/null | head -n 1",
		shellquote.Join(s.roots...), shellquote.Join(mask+"*.jar"))
	res, err := s.executor.Execute(ctx, cluster, cmd)
	if err != nil {
		return "", fmt.Errorf("failed to search for %s jar: %w", mask, err)
	}
	return firstLine(res.Stdout), nil
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
