package domain

// Cluster labels assigned by the upstream K-Means job.
const (
	ClusterLow      = 1
	ClusterModerate = 2
	ClusterHigh     = 3
)

// CategoryForCluster maps a cluster label onto a risk category. The bool is
// false for unlabeled or unknown clusters.
func CategoryForCluster(cluster int) (Category, bool) {
	switch cluster {
	case ClusterLow:
		return CategoryLow, true
	case ClusterModerate:
		return CategoryModerate, true
	case ClusterHigh:
		return CategoryHigh, true
	default:
		return "", false
	}
}
