package types

import (
	"strings"
	"time"
)

// Vendor identifies the Hadoop distribution a cluster runs
type Vendor string

const (
	VendorCloudera    Vendor = "CDH"
	VendorHortonworks Vendor = "HDP"
)

// ParseVendor normalizes a vendor tag as written in configuration
func ParseVendor(s string) Vendor {
	return Vendor(strings.ToUpper(strings.TrimSpace(s)))
}

// Credentials holds a username and secret for one access channel
type Credentials struct {
	Username string `json:"username,omitempty"`
	Password string `json:"-"`
}

// SSHCredentials extends Credentials with key based authentication
type SSHCredentials struct {
	Credentials
	KeyPath string `json:"keyPath,omitempty"`
	Port    int    `json:"port,omitempty"`
}

// KerberosCredentials are used to obtain a ticket before submitting jobs
type KerberosCredentials struct {
	Principal  string `json:"principal,omitempty"`
	KeytabPath string `json:"keytabPath,omitempty"`
	Password   string `json:"-"`
}

// Cluster is a monitored Hadoop cluster. It is created and updated outside
// the health check engine and treated as read-only by it.
type Cluster struct {
	ID       string              `json:"id"`
	Name     string              `json:"name"`
	Vendor   Vendor              `json:"vendor"`
	Host     string              `json:"host"`
	Secured  bool                `json:"secured"`
	HTTP     Credentials         `json:"http"`
	SSH      SSHCredentials      `json:"ssh"`
	Kerberos KerberosCredentials `json:"kerberos"`

	// Ports of the vendor management REST API and the YARN ResourceManager.
	// Zero means the vendor default.
	ManagerPort         int `json:"managerPort,omitempty"`
	ResourceManagerPort int `json:"resourceManagerPort,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Status is the composite health verdict of a service or cluster
type Status string

const (
	StatusGood       Status = "GOOD"
	StatusConcerning Status = "CONCERNING"
	StatusBad        Status = "BAD"
)

// Severity orders statuses from healthy (0) to failing (2)
func (s Status) Severity() int {
	switch s {
	case StatusGood:
		return 0
	case StatusConcerning:
		return 1
	default:
		return 2
	}
}

// ServiceType identifies a Hadoop ecosystem service
type ServiceType string

const (
	ServiceYARN      ServiceType = "YARN"
	ServiceHDFS      ServiceType = "HDFS"
	ServiceHive      ServiceType = "HIVE"
	ServiceHBase     ServiceType = "HBASE"
	ServiceZooKeeper ServiceType = "ZOOKEEPER"
	ServiceOozie     ServiceType = "OOZIE"
	ServiceSpark     ServiceType = "SPARK"
	ServiceImpala    ServiceType = "IMPALA"
	ServiceHue       ServiceType = "HUE"
	ServiceKafka     ServiceType = "KAFKA"
	ServiceSqoop     ServiceType = "SQOOP"
	ServiceOther     ServiceType = "OTHER"
)

var knownServices = []ServiceType{
	ServiceYARN, ServiceHDFS, ServiceHive, ServiceHBase, ServiceZooKeeper,
	ServiceOozie, ServiceSpark, ServiceImpala, ServiceHue, ServiceKafka, ServiceSqoop,
}

// ParseServiceType maps a vendor service name (e.g. "yarn", "SPARK_ON_YARN",
// "hive2") to a known service type, falling back to ServiceOther.
func ParseServiceType(name string) ServiceType {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for _, st := range knownServices {
		if upper == string(st) {
			return st
		}
	}
	for _, st := range knownServices {
		if strings.HasPrefix(upper, string(st)) {
			return st
		}
	}
	return ServiceOther
}

// JobResult is the outcome of one diagnostic job or file operation
type JobResult struct {
	Name    string   `json:"name"`
	Success bool     `json:"success"`
	Alerts  []string `json:"alerts,omitempty"`
}

// ServiceStatus is the per-service verdict of one health check pass
type ServiceStatus struct {
	Type         ServiceType `json:"type"`
	Status       Status      `json:"status"`
	JobResults   []JobResult `json:"jobResults,omitempty"`
	LogDirectory string      `json:"logDirectory,omitempty"`
}

// HdfsUsage is the aggregate distributed filesystem usage
type HdfsUsage struct {
	UsedGB  float64 `json:"usedGb"`
	TotalGB float64 `json:"totalGb"`
}

// MemoryUsage is the aggregate cluster memory as reported by YARN
type MemoryUsage struct {
	UsedMB  int64 `json:"usedMb"`
	TotalMB int64 `json:"totalMb"`
}

// NodeUsage is the filesystem usage of a single data node
type NodeUsage struct {
	Node    string  `json:"node"`
	UsedGB  float64 `json:"usedGb"`
	TotalGB float64 `json:"totalGb"`
}

// ServiceIdentity is the persistent identity of a service within a cluster.
// Service snapshots reference it so history can be followed per service.
type ServiceIdentity struct {
	ID        string      `json:"id"`
	ClusterID string      `json:"clusterId"`
	Type      ServiceType `json:"type"`
	CreatedAt time.Time   `json:"createdAt"`
}

// ServiceSnapshot is one service row of a persisted snapshot
type ServiceSnapshot struct {
	ServiceID    string      `json:"serviceId"`
	Type         ServiceType `json:"type"`
	Status       Status      `json:"status"`
	JobResults   []JobResult `json:"jobResults,omitempty"`
	LogDirectory string      `json:"logDirectory,omitempty"`
}

// Snapshot is an immutable, timestamped record of a cluster's health and usage
type Snapshot struct {
	ID          string            `json:"id"`
	ClusterID   string            `json:"clusterId"`
	ClusterName string            `json:"clusterName"`
	TakenAt     time.Time         `json:"takenAt"`
	Status      Status            `json:"status"`
	HdfsUsage   HdfsUsage         `json:"hdfsUsage"`
	MemoryUsage MemoryUsage       `json:"memoryUsage"`
	Nodes       []NodeUsage       `json:"nodes,omitempty"`
	Services    []ServiceSnapshot `json:"services,omitempty"`

	// Complete is set only once every node and service row has been written
	// together with the snapshot.
	Complete bool `json:"complete"`
}
