// Package files provides the file system operations used by ingestion.
//
// Discovery lists the workbooks (.xlsx and .xls, case-insensitive) waiting
// in an intake directory, oldest first. Manager moves ingested workbooks
// into the success directory, renaming when possible and copying across
// filesystems otherwise.
//
//	discovery := files.NewDiscovery(intakeDir)
//	workbooks, err := discovery.FindExcelFiles(intakeDir)
//
//	manager := files.NewManager(logger)
//	err = manager.MoveFile(src, filepath.Join(successDir, name))
package files
