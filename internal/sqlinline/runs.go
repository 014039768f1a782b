package sqlinline

const QEnsureRunsTable = `--sql 9136464b-b700-4029-84b6-7f8c49988909
create table if not exists dataset_runs (
    id uuid primary key,
    prompt_id text not null default '',
    mode text not null,
    trigger_word text not null,
    character_name text not null default '',
    idx integer not null,
    status text not null,
    artifact_name text not null,
    completion_strategy text not null default '',
    error_message text not null default '',
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);
`

const QInsertRun = `--sql 7a94d3d7-2197-4a1c-93da-2fc38b2a2c34
insert into dataset_runs (id, mode, trigger_word, character_name, idx, status, artifact_name)
values ($1, $2, $3, $4, $5, $6, $7)
returning created_at, updated_at;
`

const QFinishRun = `--sql df37e87a-d0ab-4123-9a86-dc21c74a9d01
update dataset_runs
set status = $2,
    prompt_id = $3,
    completion_strategy = $4,
    error_message = $5,
    updated_at = now()
where id = $1;
`

const QListRecentRuns = `--sql a54d49c0-1a61-4cff-88d9-34cfe0648645
select id, prompt_id, mode, trigger_word, character_name, idx, status,
       artifact_name, completion_strategy, error_message, created_at, updated_at
from dataset_runs
order by created_at desc
limit $1;
`
