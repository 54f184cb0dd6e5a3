package sqldb

import (
	"database/sql"
	"time"

	"github.com/josericardo03/sistemas-manuais-back/core"
)

type NotificationDB struct {
	*sql.DB
	insert      *sql.Stmt
	forUser     *sql.Stmt
	unread      *sql.Stmt
	unreadCount *sql.Stmt
	markRead    *sql.Stmt
	markAllRead *sql.Stmt
	delete      *sql.Stmt
}

func NewNotificationDB(db *sql.DB) *NotificationDB {

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS notifications (
			id INTEGER PRIMARY KEY,
			user_username varchar(128) NOT NULL,
			title varchar(256) NOT NULL,
			message text NOT NULL,
			type varchar(32) NOT NULL,
			related_manual_id varchar(36) NOT NULL DEFAULT '',
			related_version_seq int(11) NOT NULL DEFAULT '0',
			is_read int(1) NOT NULL DEFAULT '0',
			created_at INTEGER NOT NULL,
			read_at INTEGER NOT NULL DEFAULT '0'
		);`)
	if err != nil {
		panic(err)
	}

	var notificationDB = &NotificationDB{}
	notificationDB.DB = db
	notificationDB.insert = mustPrepare(db, "INSERT INTO notifications (user_username, title, message, type, related_manual_id, related_version_seq, is_read, created_at) VALUES (?, ?, ?, ?, ?, ?, 0, ?)")
	notificationDB.forUser = mustPrepare(db, "SELECT id, title, message, type, related_manual_id, related_version_seq, is_read, created_at, read_at FROM notifications WHERE user_username = ? ORDER BY created_at DESC LIMIT ?")
	notificationDB.unread = mustPrepare(db, "SELECT id, title, message, type, related_manual_id, related_version_seq, is_read, created_at, read_at FROM notifications WHERE user_username = ? AND is_read = 0 ORDER BY created_at DESC")
	notificationDB.unreadCount = mustPrepare(db, "SELECT COUNT(1) FROM notifications WHERE user_username = ? AND is_read = 0")
	notificationDB.markRead = mustPrepare(db, "UPDATE notifications SET is_read = 1, read_at = ? WHERE id = ? AND user_username = ?")
	notificationDB.markAllRead = mustPrepare(db, "UPDATE notifications SET is_read = 1, read_at = ? WHERE user_username = ? AND is_read = 0")
	notificationDB.delete = mustPrepare(db, "DELETE FROM notifications WHERE id = ? AND user_username = ?")
	return notificationDB
}

func (db *NotificationDB) InsertNotification(n core.Notification) (*core.Notification, error) {

	n.CreatedAt = time.Now()

	result, err := db.insert.Exec(n.User, n.Title, n.Message, n.Type, n.RelatedManualID, n.RelatedVersionSeq, n.CreatedAt.Unix())
	if err != nil {
		return nil, storageErr("insert notification", err)
	}

	n.ID, err = result.LastInsertId()
	if err != nil {
		return nil, storageErr("insert notification", err)
	}

	return &n, nil
}

func (db *NotificationDB) scanRows(op string, rows *sql.Rows, user string) ([]core.Notification, error) {
	defer rows.Close()

	var all = []core.Notification{}

	for rows.Next() {
		var n = core.Notification{
			User: user,
		}
		var isRead int
		var createdAt, readAt int64
		if err := rows.Scan(&n.ID, &n.Title, &n.Message, &n.Type, &n.RelatedManualID, &n.RelatedVersionSeq, &isRead, &createdAt, &readAt); err != nil {
			return nil, storageErr(op, err)
		}
		n.IsRead = isRead != 0
		n.CreatedAt = time.Unix(createdAt, 0)
		if readAt != 0 {
			n.ReadAt = time.Unix(readAt, 0)
		}
		all = append(all, n)
	}

	return all, storageErr(op, rows.Err())
}

func (db *NotificationDB) UserNotifications(user string, limit int) ([]core.Notification, error) {
	rows, err := db.forUser.Query(user, limit)
	if err != nil {
		return nil, storageErr("list notifications", err)
	}
	return db.scanRows("list notifications", rows, user)
}

func (db *NotificationDB) UnreadNotifications(user string) ([]core.Notification, error) {
	rows, err := db.unread.Query(user)
	if err != nil {
		return nil, storageErr("list unread notifications", err)
	}
	return db.scanRows("list unread notifications", rows, user)
}

func (db *NotificationDB) UnreadCount(user string) (int, error) {
	var count int
	if err := db.unreadCount.QueryRow(user).Scan(&count); err != nil {
		return 0, storageErr("count unread notifications", err)
	}
	return count, nil
}

func (db *NotificationDB) MarkRead(id int64, user string) error {
	_, err := db.markRead.Exec(time.Now().Unix(), id, user)
	return storageErr("mark notification read", err)
}

func (db *NotificationDB) MarkAllRead(user string) error {
	_, err := db.markAllRead.Exec(time.Now().Unix(), user)
	return storageErr("mark all notifications read", err)
}

func (db *NotificationDB) DeleteNotification(id int64, user string) error {
	_, err := db.delete.Exec(id, user)
	return storageErr("delete notification", err)
}
