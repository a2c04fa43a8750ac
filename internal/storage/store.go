package storage

// Store groups the repositories the orchestrators depend on.
type Store struct {
	*PageRepo
	*ChunkRepo
	*QueueRepo
	*UserRepo
	*RequestRepo
	*StatsRepo
}

func NewStore(db *DB) *Store {
	return &Store{
		PageRepo:    NewPageRepo(db),
		ChunkRepo:   NewChunkRepo(db),
		QueueRepo:   NewQueueRepo(db),
		UserRepo:    NewUserRepo(db),
		RequestRepo: NewRequestRepo(db),
		StatsRepo:   NewStatsRepo(db),
	}
}
