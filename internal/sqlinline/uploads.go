package sqlinline

const QCreateUploadedAssetsTable = `--sql 14e87896-0862-4767-b554-2c255786b210
create table if not exists uploaded_assets (
  id uuid primary key,
  storage_key text not null unique,
  public_url text not null,
  content_type text not null,
  bytes bigint not null,
  width int not null default 0,
  height int not null default 0,
  checksum text not null,
  created_at timestamptz not null default now()
);
`

const QInsertUploadedAsset = `--sql 6d88c7a5-f76b-40b0-b8de-a32d9d4b965f
insert into uploaded_assets(
  id,
  storage_key,
  public_url,
  content_type,
  bytes,
  width,
  height,
  checksum,
  created_at
) values (
  $1::uuid,
  $2::text,
  $3::text,
  $4::text,
  $5::bigint,
  $6::int,
  $7::int,
  $8::text,
  $9::timestamptz
);
`

const QListRecentUploadedAssets = `--sql e5813f35-ed4f-4e01-a0df-efd5513f0e40
select storage_key, public_url, content_type, bytes, width, height, checksum, created_at
from uploaded_assets
order by created_at desc
limit $1::int;
`
