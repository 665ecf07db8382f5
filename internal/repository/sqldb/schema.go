package sqldb

import (
	"github.com/storj-labs/workspace-broker/internal/migrate"
)

// schema is the single migration that creates every table the broker
// needs. Later deployments add steps here rather than editing this
// one, the way the teacher's satellitedb grows its migration list.
func schema() *migrate.Migration {
	return &migrate.Migration{
		Table: "schema_versions",
		Steps: []*migrate.Step{
			{
				Version:     1,
				Description: "initial schema",
				Action: migrate.SQL{
					`CREATE TABLE users (
						id text PRIMARY KEY,
						username text NOT NULL UNIQUE,
						email text NOT NULL
					)`,
					`CREATE TABLE storage_nodes (
						id text PRIMARY KEY,
						name text NOT NULL UNIQUE,
						api_url text NOT NULL UNIQUE,
						sts_api_url text NOT NULL,
						region text NOT NULL,
						access_key_id text NOT NULL,
						secret_access_key text NOT NULL,
						assume_role_arn text NOT NULL,
						creator_id text NOT NULL
					)`,
					`CREATE TABLE workspace_roots (
						id text PRIMARY KEY,
						node_id text NOT NULL,
						bucket text NOT NULL,
						base_path text NOT NULL,
						root_type text NOT NULL,
						UNIQUE (node_id, bucket, base_path)
					)`,
					`CREATE TABLE workspaces (
						id text PRIMARY KEY,
						name text NOT NULL,
						owner_id text NOT NULL,
						root_id text NOT NULL,
						base_path text NOT NULL DEFAULT '',
						UNIQUE (owner_id, name)
					)`,
					`CREATE TABLE shares (
						id text PRIMARY KEY,
						workspace_id text NOT NULL,
						creator_id text NOT NULL,
						sharee_id text NOT NULL,
						permission text NOT NULL,
						expiration timestamp NULL,
						UNIQUE (workspace_id, creator_id, sharee_id)
					)`,
					`CREATE TABLE s3_tokens (
						id text PRIMARY KEY,
						owner_id text NOT NULL,
						storage_node_id text NOT NULL,
						access_key_id text NOT NULL,
						secret_access_key text NOT NULL,
						session_token text NOT NULL,
						expiration timestamp NOT NULL,
						policy_json bytea,
						workspace_ids text NOT NULL,
						root_ids text NOT NULL
					)`,
					`CREATE TABLE api_keys (
						id text PRIMARY KEY,
						user_id text NOT NULL,
						key_id text NOT NULL UNIQUE,
						secret_hash bytea NOT NULL
					)`,
					`CREATE TABLE root_indexes (
						root_id text NOT NULL,
						index_type text NOT NULL,
						id text NOT NULL,
						PRIMARY KEY (root_id, index_type)
					)`,
					`CREATE TABLE workspace_crawl_rounds (
						id text PRIMARY KEY,
						workspace_id text NOT NULL,
						start_time timestamp NOT NULL,
						end_time timestamp NULL,
						succeeded boolean NOT NULL DEFAULT false,
						last_indexed_key text NOT NULL DEFAULT '',
						total_objects bigint NOT NULL DEFAULT 0,
						total_size bigint NOT NULL DEFAULT 0
					)`,
					`CREATE TABLE artifacts (
						id text PRIMARY KEY,
						workspace_id text NOT NULL,
						object_path text NOT NULL,
						object_name text NOT NULL,
						object_revision_date timestamp NULL,
						name text NOT NULL,
						complete boolean NOT NULL DEFAULT false,
						UNIQUE (workspace_id, object_path)
					)`,
				},
			},
		},
	}
}

