package action

import (
	"fmt"
	"strings"

	"github.com/cuemby/clusterscope/pkg/remote"
	"github.com/cuemby/clusterscope/pkg/types"
	"github.com/kballard/go-shellquote"
)

const (
	checkDirName  = "clusterscope-check"
	checkFileName = "clusterscope-check.txt"
	checkContent  = "clusterscope hdfs check"
	notFoundText  = "No such file or directory"
)

// Names of the HDFS operations as reported in job results
const (
	CreateDirectory = "Create directory"
	WriteFile       = "Write file"
	ReadFile        = "Read file"
	DeleteFile      = "Delete file"
	DeleteDirectory = "Delete directory"
)

// UserDirectory is the HDFS working directory of the SSH user
func UserDirectory(cluster *types.Cluster) string {
	user := cluster.SSH.Username
	if user == "" {
		user = "hdfs"
	}
	return fmt.Sprintf("/user/%s/%s", user, checkDirName)
}

// UserFile is the check file inside UserDirectory
func UserFile(cluster *types.Cluster) string {
	return UserDirectory(cluster) + "/" + checkFileName
}

// TempFile is used when the user directory is unusable
func TempFile(cluster *types.Cluster) string {
	return fmt.Sprintf("/tmp/%s-%s.txt", checkDirName, cluster.Name)
}

func hadoopFS(args ...string) string {
	return "hadoop fs " + shellquote.Join(args...)
}

func fallbackToTemp(build func(path string) string, when ...string) func(*types.Cluster, remote.Result) (string, bool) {
	return func(cluster *types.Cluster, res remote.Result) (string, bool) {
		out := res.Stdout + res.Stderr
		for _, marker := range when {
			if strings.Contains(out, marker) {
				return build(TempFile(cluster)), true
			}
		}
		return "", false
	}
}

// HdfsOperations returns the file operations run against HDFS, in order:
// create a directory, write, read and delete a file, remove the directory.
// File operations fall back once to a temp path when the user directory is
// missing or not writable.
func HdfsOperations() []Action {
	write := func(path string) string {
		return fmt.Sprintf("echo %s | %s && echo 'File written'",
			shellquote.Join(checkContent), hadoopFS("-put", "-f", "-", path))
	}
	read := func(path string) string { return hadoopFS("-cat", path) }
	remove := func(path string) string { return hadoopFS("-rm", "-skipTrash", path) }

	return []Action{
		{
			Name: CreateDirectory,
			Command: func(c *types.Cluster) string {
				return hadoopFS("-mkdir", "-p", UserDirectory(c)) + " && " +
					hadoopFS("-test", "-d", UserDirectory(c)) + " && echo 'Directory created'"
			},
			Succeeded: Contains("Directory created"),
		},
		{
			Name:      WriteFile,
			Command:   func(c *types.Cluster) string { return write(UserFile(c)) },
			Succeeded: Contains("File written"),
			Fallback:  fallbackToTemp(write, notFoundText, "Permission denied"),
		},
		{
			Name:      ReadFile,
			Command:   func(c *types.Cluster) string { return read(UserFile(c)) },
			Succeeded: Contains(checkContent),
			Fallback:  fallbackToTemp(read, notFoundText),
		},
		{
			Name:      DeleteFile,
			Command:   func(c *types.Cluster) string { return remove(UserFile(c)) },
			Succeeded: Contains("Deleted"),
			Fallback:  fallbackToTemp(remove, notFoundText),
		},
		{
			Name: DeleteDirectory,
			Command: func(c *types.Cluster) string {
				return hadoopFS("-rm", "-r", "-skipTrash", UserDirectory(c))
			},
			Succeeded: Contains("Deleted"),
		},
	}
}
