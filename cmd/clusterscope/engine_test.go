package main

import (
	"testing"
	"time"

	"github.com/cuemby/clusterscope/pkg/cache"
	"github.com/cuemby/clusterscope/pkg/config"
	"github.com/cuemby/clusterscope/pkg/resolver"
	"github.com/cuemby/clusterscope/pkg/storage"
	"github.com/cuemby/clusterscope/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func declared(host string) []config.ClusterConfig {
	return []config.ClusterConfig{{
		Name:         "prod-a",
		Vendor:       "cdh",
		Host:         host,
		HTTPUser:     "admin",
		HTTPPassword: "secret",
		SSHUser:      "hdfs",
		SSHKeyPath:   "/keys/id_rsa",
		SSHPort:      22,
	}}
}

func TestSyncClustersRegistersAndKeepsID(t *testing.T) {
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	discovery := cache.NewDiscovery()
	first := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, syncClusters(store, discovery, declared("cm1.example.com"), func() time.Time { return first }))

	created, err := store.GetClusterByName("prod-a")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "cm1.example.com", created.Host)
	assert.Equal(t, "secret", created.HTTP.Password)
	assert.Equal(t, first, created.CreatedAt)

	discovery.SetIfAbsent("prod-a", cache.KeyExamplesJarPath, "/opt/cm1/hadoop-mapreduce-examples.jar")
	discovery.SetIfAbsent("prod-b", cache.KeyExamplesJarPath, "/opt/other/hadoop-mapreduce-examples.jar")

	later := first.Add(time.Hour)
	require.NoError(t, syncClusters(store, discovery, declared("cm2.example.com"), func() time.Time { return later }))

	_, cached := discovery.Get("prod-a", cache.KeyExamplesJarPath)
	assert.False(t, cached, "discovery of a re-synced cluster is dropped")
	_, cached = discovery.Get("prod-b", cache.KeyExamplesJarPath)
	assert.True(t, cached, "other clusters keep their discovery")

	updated, err := store.GetClusterByName("prod-a")
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "cm2.example.com", updated.Host)
	assert.Equal(t, first, updated.CreatedAt)
	assert.Equal(t, later, updated.UpdatedAt)

	all, err := store.ListClusters()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRegistrySummary(t *testing.T) {
	r := resolver.NewRegistry[string](resolver.CapabilityJarSearch).
		Register(types.VendorHortonworks, "/usr/hdp/current").
		Register(types.VendorCloudera, "/opt/cloudera/parcels/CDH")
	assert.Equal(t, "jar-search: CDH, HDP", registrySummary(r))

	empty := resolver.NewRegistry[string](resolver.CapabilityLogSearch)
	assert.Equal(t, "log-search: none", registrySummary(empty))
}
