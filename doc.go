// Package hist is a minimal local version-control engine.
//
// A repository is a working tree plus a hidden .history directory. Every
// tracked file keeps an append-only data blob and a JSON index of the
// byte ranges each commit wrote, so any snapshot can be rebuilt by reading
// one range per file. The store can be mirrored to a remote bucket.
//
// Basic usage:
//
//	repo, _ := hist.OpenDir(".")
//	repo.Init()
//
//	// Record the working tree
//	res, _ := repo.Commit(ctx, "first draft")
//	fmt.Println(res.Commit.ID, res.Changed)
//
//	// Restore it later
//	repo.View(ctx, res.Commit.ID)
//
//	// Inspect
//	commits, _ := repo.Commits()
//	versions, _ := repo.History("notes/todo.txt")
//	err := repo.Verify(ctx)
//
// With a remote:
//
//	repo.SetRemote("s3://my-bucket/notes")
//	repo.Push(ctx)
//	repo.Pull(ctx)
//
// Remote identifiers are "s3://bucket[/prefix]" (or a bare bucket name),
// "oci://registry/repo[:tag]" and "file://path".
//
// A repository assumes a single writer. Nothing is locked and a failed
// commit is not rolled back unless WithAtomicCommit is set.
package hist
