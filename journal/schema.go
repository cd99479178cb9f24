package journal

const Schema = `
CREATE TABLE IF NOT EXISTS trade_log (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	ticker TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	strike TEXT NOT NULL,
	expiration TEXT NOT NULL,
	straddle_cost TEXT NOT NULL,
	order_id TEXT NOT NULL,
	fill_price TEXT NOT NULL,
	ts DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trade_log_ts ON trade_log(ts);
CREATE INDEX IF NOT EXISTS idx_trade_log_order ON trade_log(order_id);
`
