package database

// Dates are stored as TEXT (YYYY-MM-DD), reset times as TEXT (HH:MM) and
// chances as TEXT decimals so nothing passes through binary floats.
var tables = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		last_login_at DATETIME
	);`,
	`CREATE TABLE IF NOT EXISTS characters (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER UNIQUE NOT NULL,
		name TEXT NOT NULL,
		level INTEGER NOT NULL DEFAULT 1 CHECK (level >= 1),
		current_xp INTEGER NOT NULL DEFAULT 0 CHECK (current_xp >= 0),
		xp_to_next_level INTEGER NOT NULL DEFAULT 100 CHECK (xp_to_next_level > 0),
		pity_counter INTEGER NOT NULL DEFAULT 0 CHECK (pity_counter >= 0),
		last_lootbox_date TEXT,
		daily_reset_time TEXT NOT NULL DEFAULT '03:00',
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS skills (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		character_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		unit_description TEXT NOT NULL DEFAULT 'unit',
		xp_per_unit INTEGER NOT NULL DEFAULT 10 CHECK (xp_per_unit > 0),
		level INTEGER NOT NULL DEFAULT 1 CHECK (level >= 1),
		current_xp INTEGER NOT NULL DEFAULT 0 CHECK (current_xp >= 0),
		xp_to_next_level INTEGER NOT NULL DEFAULT 100 CHECK (xp_to_next_level > 0),
		FOREIGN KEY (character_id) REFERENCES characters(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS goals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		skill_id INTEGER NOT NULL,
		owner_id INTEGER NOT NULL,
		description TEXT NOT NULL,
		goal_type TEXT NOT NULL DEFAULT 'DAILY',
		xp_reward INTEGER NOT NULL DEFAULT 25 CHECK (xp_reward >= 0),
		FOREIGN KEY (skill_id) REFERENCES skills(id) ON DELETE CASCADE,
		FOREIGN KEY (owner_id) REFERENCES users(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS goal_completions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		goal_id INTEGER NOT NULL,
		owner_id INTEGER NOT NULL,
		completion_date TEXT NOT NULL,
		UNIQUE (goal_id, owner_id, completion_date),
		FOREIGN KEY (goal_id) REFERENCES goals(id) ON DELETE CASCADE,
		FOREIGN KEY (owner_id) REFERENCES users(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS goal_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id INTEGER NOT NULL,
		goal_description TEXT NOT NULL,
		skill_name TEXT NOT NULL,
		skill_id INTEGER,
		xp_amount INTEGER NOT NULL,
		goal_type TEXT,
		action TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		FOREIGN KEY (owner_id) REFERENCES users(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS achievements (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_character_id INTEGER,
		owner_skill_id INTEGER,
		required_level INTEGER NOT NULL CHECK (required_level >= 1),
		description TEXT NOT NULL,
		claimed_date DATETIME,
		CHECK ((owner_character_id IS NULL) <> (owner_skill_id IS NULL)),
		FOREIGN KEY (owner_character_id) REFERENCES characters(id) ON DELETE CASCADE,
		FOREIGN KEY (owner_skill_id) REFERENCES skills(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS notes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		skill_id INTEGER NOT NULL,
		text TEXT NOT NULL,
		date DATETIME NOT NULL,
		FOREIGN KEY (skill_id) REFERENCES skills(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS loot_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		rarity TEXT NOT NULL DEFAULT 'COMMON',
		base_chance TEXT NOT NULL DEFAULT '0',
		received_date DATETIME,
		FOREIGN KEY (owner_id) REFERENCES users(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS received_rewards (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id INTEGER NOT NULL,
		description TEXT NOT NULL,
		source_name TEXT NOT NULL,
		received_date DATETIME NOT NULL,
		rarity TEXT,
		FOREIGN KEY (owner_id) REFERENCES users(id) ON DELETE CASCADE
	);`,
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_skills_character_id ON skills(character_id);`,
	`CREATE INDEX IF NOT EXISTS idx_goals_skill_id ON goals(skill_id);`,
	`CREATE INDEX IF NOT EXISTS idx_completions_owner_date ON goal_completions(owner_id, completion_date);`,
	`CREATE INDEX IF NOT EXISTS idx_history_owner ON goal_history(owner_id, timestamp);`,
	`CREATE INDEX IF NOT EXISTS idx_achievements_character ON achievements(owner_character_id);`,
	`CREATE INDEX IF NOT EXISTS idx_achievements_skill ON achievements(owner_skill_id);`,
	`CREATE INDEX IF NOT EXISTS idx_loot_owner_pool ON loot_items(owner_id, received_date);`,
	`CREATE INDEX IF NOT EXISTS idx_rewards_owner ON received_rewards(owner_id, received_date);`,
}
